package zarrtree

import "testing"

func TestValidateComponent(t *testing.T) {
	tests := []struct {
		name      string
		component string
		wantErr   bool
	}{
		{"ordinary name", "data.bin", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"embedded slash", "a/b", true},
		{"embedded nul", "a\x00b", true},
		{"dotfile looks ok structurally", ".git", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComponent(tt.component)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateComponent(%q) error = %v, wantErr %v", tt.component, err, tt.wantErr)
			}
		})
	}
}

func TestJoinRelPath(t *testing.T) {
	got, err := JoinRelPath("", "a")
	if err != nil || got != "a" {
		t.Fatalf("JoinRelPath(\"\", \"a\") = %q, %v", got, err)
	}
	got, err = JoinRelPath("a", "b")
	if err != nil || got != "a/b" {
		t.Fatalf("JoinRelPath(\"a\", \"b\") = %q, %v", got, err)
	}
	if _, err := JoinRelPath("a", ".."); err == nil {
		t.Fatal("JoinRelPath with \"..\" component should fail")
	}
}

func TestIsExcludedDotfile(t *testing.T) {
	tests := []struct {
		relPath string
		want    bool
	}{
		{"data.bin", false},
		{".git/config", true},
		{"sub/.datalad/config", true},
		{"sub/.gitmodules", true},
		{"sub/.hidden", false},
	}
	for _, tt := range tests {
		if got := IsExcludedDotfile(tt.relPath); got != tt.want {
			t.Errorf("IsExcludedDotfile(%q) = %v, want %v", tt.relPath, got, tt.want)
		}
	}
}
