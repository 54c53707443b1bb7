package pcm

import (
	"errors"
	"testing"
	"time"
)

func TestFrameSize(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		bits     int
		want     int
		wantErr  bool
	}{
		{"mono 8-bit", 1, 8, 1, false},
		{"mono 16-bit", 1, 16, 2, false},
		{"stereo 16-bit", 2, 16, 4, false},
		{"stereo 24-bit", 2, 24, 6, false},
		{"12-bit", 1, 12, 0, true},
		{"zero bits", 1, 0, 0, true},
		{"no channels", 0, 16, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FrameSize(tt.channels, tt.bits)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFormat) {
					t.Fatalf("FrameSize(%d, %d) error = %v, want ErrInvalidFormat", tt.channels, tt.bits, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FrameSize(%d, %d): %v", tt.channels, tt.bits, err)
			}
			if got != tt.want {
				t.Errorf("FrameSize(%d, %d) = %d, want %d", tt.channels, tt.bits, got, tt.want)
			}
		})
	}
}

func TestBytesForDuration(t *testing.T) {
	tests := []struct {
		rate      int
		frameSize int
		d         time.Duration
		want      int64
	}{
		{16000, 2, 10 * time.Second, 320000},
		{16000, 2, 2 * time.Second, 64000},
		{44100, 4, time.Second, 176400},
		// 44100 * 0.0105 = 463.05 frames, rounded down to 463.
		{44100, 4, 10500 * time.Microsecond, 463 * 4},
		{8000, 1, 0, 0},
		{8000, 1, -time.Second, 0},
	}
	for _, tt := range tests {
		got := BytesForDuration(tt.rate, tt.frameSize, tt.d)
		if got != tt.want {
			t.Errorf("BytesForDuration(%d, %d, %v) = %d, want %d", tt.rate, tt.frameSize, tt.d, got, tt.want)
		}
		if tt.frameSize > 0 && got%int64(tt.frameSize) != 0 {
			t.Errorf("BytesForDuration(%d, %d, %v) = %d is not frame aligned", tt.rate, tt.frameSize, tt.d, got)
		}
	}
}

func TestFormatValidate(t *testing.T) {
	valid := []Format{L16Mono16K, L16Mono24K, L16Mono48K, {SampleRate: 8000, Channels: 2, Depth: 8}}
	for _, f := range valid {
		if err := f.Validate(); err != nil {
			t.Errorf("%v.Validate() = %v", f, err)
		}
	}
	invalid := []Format{
		{SampleRate: 0, Channels: 1, Depth: 16},
		{SampleRate: 16000, Channels: 0, Depth: 16},
		{SampleRate: 16000, Channels: 1, Depth: 24},
		{SampleRate: 16000, Channels: 1, Depth: 12},
	}
	for _, f := range invalid {
		if err := f.Validate(); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("%+v.Validate() = %v, want ErrInvalidFormat", f, err)
		}
	}
}

func TestFormatArithmetic(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 2, Depth: 16}
	if got := f.FrameSize(); got != 4 {
		t.Errorf("FrameSize() = %d, want 4", got)
	}
	if got := f.BytesRate(); got != 64000 {
		t.Errorf("BytesRate() = %d, want 64000", got)
	}
	if got := f.BytesPerMillisecond(); got != 64 {
		t.Errorf("BytesPerMillisecond() = %v, want 64", got)
	}
	if got := f.BytesInDuration(time.Second); got != 64000 {
		t.Errorf("BytesInDuration(1s) = %d, want 64000", got)
	}
	if got := f.Duration(64000); got != time.Second {
		t.Errorf("Duration(64000) = %v, want 1s", got)
	}
	if got := f.AlignBytes(64003); got != 64000 {
		t.Errorf("AlignBytes(64003) = %d, want 64000", got)
	}
	if got := f.Samples(10); got != 2 {
		t.Errorf("Samples(10) = %d, want 2", got)
	}
}

func TestFormatString(t *testing.T) {
	if got, want := L16Mono16K.String(), "audio/L16; rate=16000; channels=1"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
