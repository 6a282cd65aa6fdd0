package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// DefaultTimeout bounds one request/response round trip.
const DefaultTimeout = 5 * time.Second

// Client talks to the daemon over its control socket. Safe for use from
// multiple goroutines; requests are serialised.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial connects to the daemon socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, DefaultTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to brailled at %s: %w", socketPath, err)
	}
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout changes the per-call deadline.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Call sends one request and decodes the response. A response carrying
// an error is returned as a Go error.
func (c *Client) Call(reqType string, payload any) (*Response, error) {
	req, err := NewRequest(reqType, payload)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.timeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	data = append(data, '\n')
	if _, err := c.conn.Write(data); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !resp.Success {
		if resp.Error != nil {
			return &resp, fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
		}
		return &resp, fmt.Errorf("request failed")
	}
	return &resp, nil
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusData, error) {
	resp, err := c.Call(TypeStatus, nil)
	if err != nil {
		return nil, err
	}
	var status StatusData
	if err := DecodeData(resp, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Dot sends one dot press.
func (c *Client) Dot(dot int) error {
	_, err := c.Call(TypeDot, DotPayload{Dot: dot})
	return err
}

// Chord sends a complete chord, bypassing the aggregator timer.
func (c *Client) Chord(dots []int) error {
	_, err := c.Call(TypeChord, ChordPayload{Dots: dots})
	return err
}

// ToggleMode cycles the active mode and returns the new one.
func (c *Client) ToggleMode() (string, error) {
	resp, err := c.Call(TypeToggleMode, nil)
	if err != nil {
		return "", err
	}
	var data ModeData
	if err := DecodeData(resp, &data); err != nil {
		return "", err
	}
	return data.Mode, nil
}

// SetMode selects a mode by name and returns the active mode.
func (c *Client) SetMode(mode string) (string, error) {
	resp, err := c.Call(TypeSetMode, SetModePayload{Mode: mode})
	if err != nil {
		return "", err
	}
	var data ModeData
	if err := DecodeData(resp, &data); err != nil {
		return "", err
	}
	return data.Mode, nil
}

// ToggleOverlay flips overlay tracking and returns the new state.
func (c *Client) ToggleOverlay() (bool, error) {
	resp, err := c.Call(TypeToggleOverlay, nil)
	if err != nil {
		return false, err
	}
	var data OverlayData
	if err := DecodeData(resp, &data); err != nil {
		return false, err
	}
	return data.Enabled, nil
}

// OverlayLine fetches one rendered overlay line.
func (c *Client) OverlayLine(line int) (string, error) {
	resp, err := c.Call(TypeOverlayLine, OverlayLinePayload{Line: line})
	if err != nil {
		return "", err
	}
	var data OverlayLineData
	if err := DecodeData(resp, &data); err != nil {
		return "", err
	}
	return data.Braille, nil
}

// SetChordTimeout changes the chord quiescence timeout.
func (c *Client) SetChordTimeout(ms int) error {
	_, err := c.Call(TypeSetTimeout, SetTimeoutPayload{Milliseconds: ms})
	return err
}

// Reset restores the engine to its initial state.
func (c *Client) Reset() error {
	_, err := c.Call(TypeReset, nil)
	return err
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
