package config

const defaultAppID = "handoff"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		AppID:       defaultAppID,
		LockName:    lockNameFor(defaultAppID),
		ChannelName: channelNameFor(defaultAppID),
		RuntimeDir:  "",
		Send: SendConfig{
			TimeoutMS:       2000,
			FailureExitCode: 0,
		},
		Server: ServerConfig{
			MaxMessageBytes: 64 << 10,
			ReadTimeoutMS:   5000,
			RebindAttempts:  5,
			RebindInitialMS: 100,
			RebindMaxMS:     5000,
		},
		Scheme: SchemeConfig{
			Enable: true,
			Name:   defaultAppID,
		},
		Notify: NotifyConfig{
			Enable:    true,
			Backend:   "stdout",
			AppName:   defaultAppID,
			TimeoutMS: 4000,
		},
	}
}

func lockNameFor(appID string) string {
	return appID + "-lock"
}

func channelNameFor(appID string) string {
	return appID + "-channel"
}
