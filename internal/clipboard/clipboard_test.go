package clipboard

import "testing"

func TestSnapshotHas(t *testing.T) {
	snap := Snapshot{Formats: []string{FormatText, FormatCode}}

	tests := []struct {
		format string
		want   bool
	}{
		{FormatText, true},
		{FormatCode, true},
		{FormatHTML, false},
		{FormatImage, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := snap.Has(tt.format); got != tt.want {
				t.Errorf("Has(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestSnapshotHas_Empty(t *testing.T) {
	var snap Snapshot
	if snap.Has(FormatText) {
		t.Error("empty snapshot should not report any format")
	}
}
