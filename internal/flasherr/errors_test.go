package flasherr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wondfs-go/flashfs/internal/flasherr"
)

func Test_New_CarriesKindAndMessage(t *testing.T) {
	t.Parallel()

	err := flasherr.New(flasherr.AddressOutOfRange, "block %d out of range", 42)

	require.Error(t, err)
	assert.Equal(t, flasherr.AddressOutOfRange, err.Kind())
	assert.Contains(t, err.Error(), "block 42 out of range")
}

func Test_Is_MatchesKindOnly(t *testing.T) {
	t.Parallel()

	err := flasherr.New(flasherr.NoSpareBlock, "exhausted")

	assert.True(t, flasherr.Is(err, flasherr.NoSpareBlock))
	assert.False(t, flasherr.Is(err, flasherr.AddressOutOfRange))
	assert.False(t, flasherr.Is(newPlainError(), flasherr.NoSpareBlock))
}

func Test_Kind_Fatal(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		kind flasherr.Kind
		want bool
	}{
		{name: "MediumWriteOnceViolation", kind: flasherr.MediumWriteOnceViolation, want: true},
		{name: "AddressOutOfRange", kind: flasherr.AddressOutOfRange, want: true},
		{name: "NoSpareBlock", kind: flasherr.NoSpareBlock, want: true},
		{name: "UnimplementedScheme", kind: flasherr.UnimplementedScheme, want: true},
		{name: "CorruptionUnrecoverable", kind: flasherr.CorruptionUnrecoverable, want: false},
		{name: "CorruptionRepaired", kind: flasherr.CorruptionRepaired, want: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, testCase.kind.Fatal())
		})
	}
}

func newPlainError() error {
	return errPlain{}
}

type errPlain struct{}

func (errPlain) Error() string { return "plain error" }
