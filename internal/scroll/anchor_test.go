package scroll

import "testing"

func TestCorrection(t *testing.T) {
	tests := []struct {
		name      string
		oldHeight int
		newHeight int
		oldOffset int
		want      int
	}{
		{"prepend at top", 1000, 1400, 0, 400},
		{"prepend mid-scroll", 1000, 1400, 250, 650},
		{"no growth", 1000, 1000, 250, 250},
		{"shrink", 1000, 900, 250, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Correction(tt.oldHeight, tt.newHeight, tt.oldOffset)
			if got != tt.want {
				t.Errorf("Correction(%d, %d, %d) = %d, want %d",
					tt.oldHeight, tt.newHeight, tt.oldOffset, got, tt.want)
			}
		})
	}
}

func TestNearBottom(t *testing.T) {
	tests := []struct {
		name      string
		height    int
		offset    int
		viewport  int
		threshold int
		want      bool
	}{
		{"at bottom", 1000, 600, 400, 150, true},
		{"just inside threshold", 1000, 451, 400, 150, true},
		{"at threshold", 1000, 450, 400, 150, false},
		{"scrolled up", 1000, 100, 400, 150, false},
		{"content fits viewport", 300, 0, 400, 150, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NearBottom(tt.height, tt.offset, tt.viewport, tt.threshold)
			if got != tt.want {
				t.Errorf("NearBottom(%d, %d, %d, %d) = %v, want %v",
					tt.height, tt.offset, tt.viewport, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestAtTop(t *testing.T) {
	if !AtTop(0) {
		t.Error("AtTop(0) = false, want true")
	}
	if AtTop(1) {
		t.Error("AtTop(1) = true, want false")
	}
}
