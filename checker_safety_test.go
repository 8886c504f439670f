package casreg

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPanicsOnDuplicateWriteID(t *testing.T) {
	events := []Event{
		InvokeWrite[string, string]{Time: 1, Process: 0, WriteID: "w1", PrevWriteID: "w0", Value: "v1"},
		InvokeWrite[string, string]{Time: 2, Process: 0, WriteID: "w1", PrevWriteID: "w0", Value: "v2"},
	}
	assert.Panics(t, func() {
		Check(Config{Concurrency: 1}, seedW0V0(), events)
	})
}

func TestSafeCheckRecoversInvalidHistory(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	events := []Event{
		InvokeRead{Time: 1, Process: 0},
		InvokeRead{Time: 2, Process: 0}, // duplicate pending read on process 0
	}

	verdict, err := SafeCheck(Config{Concurrency: 1}, seedW0V0(), events, WithLogger[string, string](logger))
	require.Error(t, err)
	assert.Equal(t, Verdict{}, verdict)

	var ihe InvalidHistoryError
	require.ErrorAs(t, err, &ihe)
	var dup *DuplicatePendingReadError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, 0, dup.Process)

	assert.Contains(t, buf.String(), "invalid history")
}

func TestSafeCheckReturnsValidVerdictWhenHistoryIsWellFormed(t *testing.T) {
	verdict, err := SafeCheck(Config{Concurrency: 2}, seedW0V0(), happyChainEvents())
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
}
