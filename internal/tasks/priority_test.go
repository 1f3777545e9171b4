package tasks_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterGowen/open-discussions/internal/tasks"
)

func TestParsePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    tasks.Priority
		wantErr bool
	}{
		{in: "high", want: tasks.PriorityHigh},
		{in: "", want: tasks.PriorityNormal},
		{in: "3", want: tasks.PriorityLow},
		{in: "urgent", want: tasks.PriorityNormal, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := tasks.ParsePriority(tt.in)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
