//go:build !windows

package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSocketChannelRoundTrip(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}
	ch := Channel{Name: "AppX", Transport: transport}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := make(chan string, 4)
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- ch.Serve(ctx, func(text string) { messages <- text })
	}()

	require.NoError(t, ch.Send(context.Background(), "hello", time.Second))
	require.NoError(t, ch.Send(context.Background(), "world", time.Second))
	require.Equal(t, "hello", <-messages)
	require.Equal(t, "world", <-messages)

	cancel()
	require.NoError(t, <-serveDone)

	_, statErr := os.Stat(transport.Path("AppX"))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestSocketListenOpensPermissions(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}

	listener, err := transport.Listen("AppX")
	require.NoError(t, err)
	defer listener.Close()

	stat, err := os.Stat(transport.Path("AppX"))
	require.NoError(t, err)
	require.Equal(t, SocketMode, stat.Mode().Perm())
}

func TestSocketListenRecoversStaleSocket(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(transport.Path("AppX"), []byte("stale"), 0o600))

	listener, err := transport.Listen("AppX")
	require.NoError(t, err)
	require.NoError(t, listener.Close())
}

func TestSocketListenRecoversSocketLeftByClosedListener(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}

	raw, err := net.Listen("unix", transport.Path("AppX"))
	require.NoError(t, err)
	raw.(*net.UnixListener).SetUnlinkOnClose(false)
	require.NoError(t, raw.Close())

	listener, err := transport.Listen("AppX")
	require.NoError(t, err)
	require.NoError(t, listener.Close())
}

func TestSocketListenRejectsLiveListener(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}

	live, err := transport.Listen("AppX")
	require.NoError(t, err)
	defer live.Close()

	accepted := make(chan int, 1)
	go func() {
		conn, acceptErr := live.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
		accepted <- 1
	}()

	_, err = transport.Listen("AppX")
	require.Error(t, err)
	require.Contains(t, err.Error(), "live listener")

	_, statErr := os.Stat(transport.Path("AppX"))
	require.NoError(t, statErr)

	// The check must not connect: a connection would be a message to the owner.
	select {
	case <-accepted:
		t.Fatal("live listener received a connection from the liveness check")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSocketListenerCloseReleasesOwner(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}

	first, err := transport.Listen("AppX")
	require.NoError(t, err)
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())

	second, err := transport.Listen("AppX")
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSocketListenFailsWhenDirUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	ch := Channel{Name: "AppX", Transport: SocketTransport{Dir: filepath.Join(blocker, "sub")}}
	err := ch.Serve(context.Background(), func(string) {})
	require.ErrorIs(t, err, ErrListenerBindFailed)
}

func TestSocketDialMissingReportsNoListener(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}

	_, err := transport.Dial(context.Background(), "AppX")
	require.ErrorIs(t, err, ErrNoListener)
}

func TestSocketSendDeliversEmptyPayload(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}
	ch := Channel{Name: "AppX", Transport: transport}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := make(chan string, 2)
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- ch.Serve(ctx, func(text string) { messages <- text })
	}()

	require.NoError(t, ch.Send(context.Background(), "", time.Second))
	select {
	case msg := <-messages:
		require.Equal(t, "", msg)
	case <-time.After(2 * time.Second):
		t.Fatal("empty payload was not delivered")
	}

	cancel()
	require.NoError(t, <-serveDone)
}

func TestSocketBacklogCompletesSendWhileCallbackRuns(t *testing.T) {
	transport := SocketTransport{Dir: t.TempDir()}
	ch := Channel{Name: "AppX", Transport: transport}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	messages := make(chan string, 2)
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- ch.Serve(ctx, func(text string) {
			messages <- text
			<-release
		})
	}()

	require.NoError(t, ch.Send(context.Background(), "first", time.Second))
	require.Equal(t, "first", <-messages)

	// The callback for "first" is still blocked; the kernel backlog takes this one.
	require.NoError(t, ch.Send(context.Background(), "second", time.Second))
	select {
	case msg := <-messages:
		t.Fatalf("%q delivered while the previous callback was running", msg)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.Equal(t, "second", <-messages)

	cancel()
	require.NoError(t, <-serveDone)
}

func TestSocketSendWithoutPrimaryFailsWithinTimeout(t *testing.T) {
	ch := Channel{Name: "AppX", Transport: SocketTransport{Dir: t.TempDir()}}

	started := time.Now()
	err := ch.Send(context.Background(), "hello", 250*time.Millisecond)
	require.ErrorIs(t, err, ErrSendFailed)
	require.ErrorIs(t, err, ErrConnectTimeout)
	require.Less(t, time.Since(started), 750*time.Millisecond)
}

func TestSocketErrorHelpers(t *testing.T) {
	require.False(t, isSocketMissing(nil))
	require.False(t, isConnectionRefused(nil))
	require.True(t, isSocketMissing(os.ErrNotExist))
}
