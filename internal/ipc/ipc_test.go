package ipc

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler implements a minimal request switch for protocol tests.
func echoHandler(req *Request) *Response {
	switch req.Type {
	case TypeStatus:
		return OK(StatusData{Mode: "grade1", ChordTimeoutMs: 50, OverlayEnabled: true})
	case TypeDot:
		var p DotPayload
		if err := DecodePayload(req, &p); err != nil {
			return Fail(ErrCodeBadRequest, err.Error())
		}
		if p.Dot < 0 || p.Dot > 6 {
			return Fail(ErrCodeBadRequest, fmt.Sprintf("dot %d out of range", p.Dot))
		}
		return OK(nil)
	case TypeSetMode:
		var p SetModePayload
		if err := DecodePayload(req, &p); err != nil {
			return Fail(ErrCodeBadRequest, err.Error())
		}
		return OK(ModeData{Mode: p.Mode})
	default:
		return Fail(ErrCodeUnknown, "unknown type "+req.Type)
	}
}

func startTestServer(t *testing.T) string {
	t.Helper()
	// Socket paths have a low length limit; keep the temp name short.
	socketPath := filepath.Join(t.TempDir(), "b.sock")
	server := NewServer(socketPath, echoHandler)
	require.NoError(t, server.Start())
	t.Cleanup(func() { server.Stop() })
	return socketPath
}

func TestRequestResponseRoundTrip(t *testing.T) {
	socketPath := startTestServer(t)

	client, err := Dial(socketPath)
	require.NoError(t, err)
	defer client.Close()

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, "grade1", status.Mode)
	assert.Equal(t, 50, status.ChordTimeoutMs)
	assert.True(t, status.OverlayEnabled)
}

func TestMultipleRequestsOnOneConnection(t *testing.T) {
	socketPath := startTestServer(t)

	client, err := Dial(socketPath)
	require.NoError(t, err)
	defer client.Close()

	for dot := 0; dot <= 6; dot++ {
		require.NoError(t, client.Dot(dot))
	}

	mode, err := client.SetMode("kana")
	require.NoError(t, err)
	assert.Equal(t, "kana", mode)
}

func TestErrorResponsesSurfaceAsErrors(t *testing.T) {
	socketPath := startTestServer(t)

	client, err := Dial(socketPath)
	require.NoError(t, err)
	defer client.Close()

	err = client.Dot(9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeBadRequest)

	_, err = client.Call("bogus", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknown)
}

func TestConcurrentClients(t *testing.T) {
	socketPath := startTestServer(t)

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			client, err := Dial(socketPath)
			if err != nil {
				done <- err
				return
			}
			defer client.Close()
			for j := 0; j < 10; j++ {
				if _, err := client.Status(); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}
}

func TestDialMissingSocket(t *testing.T) {
	_, err := Dial(filepath.Join(t.TempDir(), "absent.sock"))
	assert.Error(t, err)
}

func TestStartRejectsLiveSocket(t *testing.T) {
	socketPath := startTestServer(t)

	second := NewServer(socketPath, echoHandler)
	err := second.Start()
	assert.Error(t, err)
}

func TestPayloadHelpers(t *testing.T) {
	req, err := NewRequest(TypeDot, DotPayload{Dot: 3})
	require.NoError(t, err)

	var p DotPayload
	require.NoError(t, DecodePayload(req, &p))
	assert.Equal(t, 3, p.Dot)

	resp := OK(ModeData{Mode: "nemeth"})
	var data ModeData
	require.NoError(t, DecodeData(resp, &data))
	assert.Equal(t, "nemeth", data.Mode)

	fail := Fail(ErrCodeBadRequest, "nope")
	assert.False(t, fail.Success)
	assert.Equal(t, ErrCodeBadRequest, fail.Error.Code)
}
