package audio

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *Config) { c.SampleRate = 0 },
			wantErr: "SampleRate",
		},
		{
			name:    "negative block size",
			mutate:  func(c *Config) { c.BlockSize = -1 },
			wantErr: "BlockSize",
		},
		{
			name:    "zero channels",
			mutate:  func(c *Config) { c.Channels = 0 },
			wantErr: "Channels",
		},
		{
			name:    "empty format",
			mutate:  func(c *Config) { c.Format = "" },
			wantErr: "Format",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	t.Run("default device", func(t *testing.T) {
		s := NewCaptureSource(DefaultConfig())
		args := strings.Join(s.buildArgs(), " ")
		want := "--format s16 --rate 16000 --channels 1 -"
		if args != want {
			t.Errorf("args = %q, want %q", args, want)
		}
	})

	t.Run("explicit device", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Device = "alsa_input.usb-mic"
		s := NewCaptureSource(cfg)
		args := strings.Join(s.buildArgs(), " ")
		if !strings.HasSuffix(args, "- --target alsa_input.usb-mic") {
			t.Errorf("args = %q, want trailing target flag", args)
		}
	})
}

func TestOpenRejectsBadInput(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		s := NewCaptureSource(Config{})
		if err := s.Open(func([]byte, string) {}); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("nil callback", func(t *testing.T) {
		s := NewCaptureSource(DefaultConfig())
		err := s.Open(nil)
		if err == nil || !strings.Contains(err.Error(), "callback") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestCloseWithoutOpen(t *testing.T) {
	s := NewCaptureSource(DefaultConfig())
	if err := s.Close(); err != nil {
		t.Errorf("Close() on unopened source = %v", err)
	}
	if s.IsOpen() {
		t.Error("IsOpen() = true before Open")
	}
}
