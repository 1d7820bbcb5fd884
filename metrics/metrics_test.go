package metrics_test

import (
	"testing"

	"github.com/jrsteele09/vistara-dashboard/metrics"
	"github.com/stretchr/testify/require"
)

func TestFormatMinutes(t *testing.T) {
	require.Equal(t, "0m", metrics.FormatMinutes(0))
	require.Equal(t, "45m", metrics.FormatMinutes(45))
	require.Equal(t, "2h", metrics.FormatMinutes(120))
	require.Equal(t, "3h 20m", metrics.FormatMinutes(199.6))
}

func TestParsePeriod(t *testing.T) {
	require.Equal(t, metrics.PeriodMonth, metrics.ParsePeriod("30d"))
	require.Equal(t, metrics.PeriodWeek, metrics.ParsePeriod(""))
	require.Equal(t, metrics.PeriodWeek, metrics.ParsePeriod("1y"))
}

func TestExecutionStatusFinished(t *testing.T) {
	require.True(t, metrics.ExecutionSuccess.Finished())
	require.True(t, metrics.ExecutionCanceled.Finished())
	require.False(t, metrics.ExecutionRunning.Finished())
	require.False(t, metrics.ExecutionWaiting.Finished())
}
