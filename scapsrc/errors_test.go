package scapsrc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{cause, KindOther},
		{fmt.Errorf("%w: %w", ErrBackendRead, cause), KindBackendRead},
		{fmt.Errorf("%w: preroll: %w", ErrInit, fmt.Errorf("%w: x", ErrBackendRead)), KindInit},
		{fmt.Errorf("%w: x", ErrUnsupportedFormat), KindUnsupportedFormat},
		{fmt.Errorf("%w: %w", ErrNegotiation, cause), KindNegotiation},
		{ErrNotNegotiated, KindNotNegotiated},
		{fmt.Errorf("%w: %w", ErrShutdown, cause), KindShutdown},
		{fmt.Errorf("%w: %w", ErrFlushing, cause), KindFlushing},
		{ErrInvalidTransition, KindInvalidTransition},
		{errors.Join(fmt.Errorf("%w: x", ErrShutdown), cause), KindShutdown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "negotiation", KindNegotiation.String())
}
