package complete

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	inkling "github.com/Paranoid-AF/inkling"
)

// ErrNoReply is returned when the daemon closes the connection without
// answering, which it does for requests superseded by a newer one.
var ErrNoReply = errors.New("daemon closed connection without a reply")

// Remote forwards completions to an inkling daemon over a Unix socket.
// Every Remote is its own daemon session, so a new request supersedes the
// previous one still in flight.
type Remote struct {
	sockPath  string
	sessionID string
}

// NewRemote returns a Remote talking to the daemon at sockPath.
func NewRemote(sockPath string) *Remote {
	return &Remote{sockPath: sockPath, sessionID: uuid.NewString()}
}

// SocketPath returns the daemon socket this Remote dials.
func (r *Remote) SocketPath() string {
	return r.sockPath
}

// SessionID returns the session identifier sent with every request.
func (r *Remote) SessionID() string {
	return r.sessionID
}

// Complete sends req to the daemon and returns its suggestion.
func (r *Remote) Complete(ctx context.Context, req *inkling.Request) (string, error) {
	out := *req
	out.SessionID = r.sessionID

	var resp inkling.Response
	if err := r.roundTrip(ctx, &out, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	if resp.RequestID != req.RequestID {
		return "", fmt.Errorf("daemon answered request %d, want %d", resp.RequestID, req.RequestID)
	}
	return resp.Suggestion, nil
}

// Status asks the daemon whether it holds an API key.
func (r *Remote) Status(ctx context.Context) (bool, error) {
	resp, err := r.Config(ctx, "status")
	if err != nil {
		return false, err
	}
	return resp.Configured, nil
}

// Reload asks the daemon to rebuild its client from the config and store on
// disk, and reports whether it now holds an API key.
func (r *Remote) Reload(ctx context.Context) (bool, error) {
	resp, err := r.Config(ctx, "reload")
	if err != nil {
		return false, err
	}
	return resp.Configured, nil
}

// Config sends a config action to the daemon.
func (r *Remote) Config(ctx context.Context, action string) (*inkling.ConfigResponse, error) {
	var resp inkling.ConfigResponse
	if err := r.roundTrip(ctx, &inkling.ConfigRequest{Action: action}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &resp, nil
}

// roundTrip writes one JSON line and reads one JSON line back.
func (r *Remote) roundTrip(ctx context.Context, in, out any) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", r.sockPath)
	if err != nil {
		return fmt.Errorf("dial daemon: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write to daemon: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read from daemon: %w", err)
		}
		return ErrNoReply
	}
	if err := json.Unmarshal(scanner.Bytes(), out); err != nil {
		return fmt.Errorf("decode daemon reply: %w", err)
	}
	return nil
}
