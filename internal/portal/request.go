package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

type ResponseStatus = uint32

const (
	Success   ResponseStatus = 0
	Cancelled ResponseStatus = 1
	Ended     ResponseStatus = 2
)

const responseSignal = requestInterface + ".Response"

// request performs a portal call whose result arrives later as a Response
// signal on a Request object. token must be the handle_token passed in args.
func (c *Conn) request(ctx context.Context, method, token string, args ...any) (map[string]dbus.Variant, error) {
	expected := c.requestPath(token)
	unsubscribe, err := c.subscribe(expected)
	if err != nil {
		return nil, err
	}
	defer unsubscribe()

	signals := make(chan *dbus.Signal, 8)
	c.bus.Signal(signals)
	defer c.bus.RemoveSignal(signals)

	var handle dbus.ObjectPath
	if err := c.callStore(ctx, ObjectPath, method, &handle, args...); err != nil {
		return nil, err
	}
	if handle != expected {
		// Portals older than 0.9 do not derive the path from the token.
		unsubscribeHandle, err := c.subscribe(handle)
		if err != nil {
			return nil, err
		}
		defer unsubscribeHandle()
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.object(handle).Call(requestCloseName, 0).Err
			return nil, ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return nil, fmt.Errorf("%w: signal channel closed", ErrUnexpectedResponse)
			}
			if sig.Path != handle || sig.Name != responseSignal {
				continue
			}
			return parseResponse(method, sig)
		}
	}
}

func (c *Conn) subscribe(path dbus.ObjectPath) (func(), error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(requestInterface),
		dbus.WithMatchMember("Response"),
	}
	if err := c.bus.AddMatchSignal(opts...); err != nil {
		return nil, fmt.Errorf("portal: subscribe %s: %w", path, err)
	}
	return func() { _ = c.bus.RemoveMatchSignal(opts...) }, nil
}

func parseResponse(method string, sig *dbus.Signal) (map[string]dbus.Variant, error) {
	if len(sig.Body) != 2 {
		return nil, fmt.Errorf("%w: %s response has %d values", ErrUnexpectedResponse, method, len(sig.Body))
	}
	status, ok := sig.Body[0].(uint32)
	if !ok {
		return nil, fmt.Errorf("%w: %s status has type %T", ErrUnexpectedResponse, method, sig.Body[0])
	}
	results, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("%w: %s results have type %T", ErrUnexpectedResponse, method, sig.Body[1])
	}

	switch status {
	case Success:
		return results, nil
	case Cancelled:
		return nil, fmt.Errorf("portal: %s: %w", method, ErrCancelled)
	default:
		return nil, fmt.Errorf("portal: %s ended by the portal (status %d)", method, status)
	}
}
