package zarrtree

import (
	"errors"
	"testing"

	"github.com/jwodder/zarrgallery/internal/walkerr"
)

func TestBuilderDuplicateInsert(t *testing.T) {
	b := NewBuilder()
	mustInsert(t, b, "a.txt", DigestBytes(nil), 0)
	err := b.Insert(FileEntry{RelPath: "a.txt", Digest: DigestBytes(nil), Size: 0})
	if err == nil {
		t.Fatal("Insert() of duplicate relpath should fail")
	}
	var werr *walkerr.Error
	if !errors.As(err, &werr) || werr.Kind != walkerr.Duplicate {
		t.Errorf("Insert() error = %v, want walkerr.Duplicate", err)
	}
}

func TestBuilderFileDirConflict(t *testing.T) {
	b := NewBuilder()
	mustInsert(t, b, "a", DigestBytes(nil), 0)
	err := b.Insert(FileEntry{RelPath: "a/b", Digest: DigestBytes(nil), Size: 0})
	if err == nil {
		t.Fatal("Insert() of a/b under file a should fail")
	}
}

func TestBuilderFinalizeOnce(t *testing.T) {
	b := NewBuilder()
	mustInsert(t, b, "a.txt", DigestBytes(nil), 0)
	if _, _, _, err := b.Finalize(); err != nil {
		t.Fatalf("first Finalize() error = %v", err)
	}
	if _, _, _, err := b.Finalize(); err == nil {
		t.Fatal("second Finalize() should error")
	}
}

// TestInsertionOrderIrrelevant covers invariant 7 of spec.md §8: permuting
// insertion order must not change the finalized root digest, since
// combine always sorts children by name.
func TestInsertionOrderIrrelevant(t *testing.T) {
	b1 := NewBuilder()
	mustInsert(t, b1, "b.txt", DigestString("hi"), 2)
	mustInsert(t, b1, "a.txt", DigestBytes(nil), 0)
	mustInsert(t, b1, "d/x", DigestBytes(nil), 0)
	root1, f1, by1, err := b1.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	b2 := NewBuilder()
	mustInsert(t, b2, "d/x", DigestBytes(nil), 0)
	mustInsert(t, b2, "a.txt", DigestBytes(nil), 0)
	mustInsert(t, b2, "b.txt", DigestString("hi"), 2)
	root2, f2, by2, err := b2.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if root1 != root2 || f1 != f2 || by1 != by2 {
		t.Errorf("insertion order changed result: (%q,%d,%d) vs (%q,%d,%d)", root1, f1, by1, root2, f2, by2)
	}
}
