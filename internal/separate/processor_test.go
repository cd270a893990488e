package separate_test

import (
	"errors"
	"testing"

	"github.com/alnah/go-separate/internal/separate"
)

type mapFileReader map[string][]byte

func (m mapFileReader) ReadFile(name string) ([]byte, error) {
	if data, ok := m[name]; ok {
		return data, nil
	}
	return nil, errors.New("no such file")
}

var _ separate.FileReader = mapFileReader(nil)

func TestNewProcessor(t *testing.T) {
	t.Parallel()

	p, err := separate.NewProcessor(separate.ModelInfo{SampleRate: 48000})
	if err != nil {
		t.Fatalf("NewProcessor() unexpected error: %v", err)
	}
	if p.SampleRate() != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", p.SampleRate())
	}

	if _, err := separate.NewProcessor(separate.ModelInfo{}); !errors.Is(err, separate.ErrInvalidResponse) {
		t.Errorf("NewProcessor(zero rate) error = %v, want ErrInvalidResponse", err)
	}
}

func TestProcessor_Prepare(t *testing.T) {
	t.Parallel()

	files := mapFileReader{
		"/tmp/a.wav": []byte("AAAA"),
		"/tmp/b.wav": []byte("BB"),
	}

	tests := []struct {
		name         string
		paths        []string
		descriptions []string
		wantErr      error
		wantAnyErr   bool
	}{
		{
			name:         "single item",
			paths:        []string{"/tmp/a.wav"},
			descriptions: []string{"  dog barking "},
		},
		{
			name:         "batch of two",
			paths:        []string{"/tmp/a.wav", "/tmp/b.wav"},
			descriptions: []string{"speech", "music"},
		},
		{
			name:         "length mismatch",
			paths:        []string{"/tmp/a.wav"},
			descriptions: []string{"a", "b"},
			wantErr:      separate.ErrBatchMismatch,
		},
		{
			name:    "empty batch",
			wantErr: separate.ErrBatchMismatch,
		},
		{
			name:         "blank description",
			paths:        []string{"/tmp/a.wav"},
			descriptions: []string{"   "},
			wantErr:      separate.ErrEmptyDescription,
		},
		{
			name:         "unreadable file",
			paths:        []string{"/tmp/missing.wav"},
			descriptions: []string{"speech"},
			wantAnyErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := separate.NewProcessor(separate.ModelInfo{SampleRate: 16000},
				separate.WithProcessorFileReader(files))
			if err != nil {
				t.Fatal(err)
			}

			in, err := p.Prepare(tt.paths, tt.descriptions)
			if tt.wantErr != nil || tt.wantAnyErr {
				if err == nil {
					t.Fatal("Prepare() expected error, got nil")
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("Prepare() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Prepare() unexpected error: %v", err)
			}

			if in.Len() != len(tt.paths) || len(in.Descriptions) != len(tt.paths) {
				t.Fatalf("Prepare() batch = %d/%d, want %d", in.Len(), len(in.Descriptions), len(tt.paths))
			}
			for i, path := range tt.paths {
				if string(in.Audio[i].Data) != string(files[path]) {
					t.Errorf("item %d data = %q, want %q", i, in.Audio[i].Data, files[path])
				}
			}
			if in.Audio[0].Name != "a.wav" {
				t.Errorf("item 0 name = %q, want a.wav", in.Audio[0].Name)
			}
			if tt.name == "single item" && in.Descriptions[0] != "dog barking" {
				t.Errorf("description = %q, want trimmed %q", in.Descriptions[0], "dog barking")
			}
		})
	}
}
