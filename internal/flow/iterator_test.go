package flow

import "testing"

func TestFileIteratorWalksAllFiles(t *testing.T) {
	files := []UploadedFile{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	it := NewFileIterator(files, 0)

	var visited []string
	for {
		f, ok := it.Current()
		if !ok {
			t.Fatal("current must be ok for a non-empty list")
		}
		visited = append(visited, f.Name)
		if it.Advance() {
			break
		}
	}
	if len(visited) != 3 || visited[2] != "c" {
		t.Fatalf("unexpected visit order: %v", visited)
	}
}

func TestFileIteratorBoundaries(t *testing.T) {
	it := NewFileIterator([]UploadedFile{{Name: "a"}, {Name: "b"}}, 0)

	if !it.Retreat() {
		t.Fatal("retreat at the first file must signal atStart")
	}
	if it.Advance() {
		t.Fatal("advance with a following file must not signal done")
	}
	if !it.Advance() {
		t.Fatal("advance at the last file must signal done")
	}
	if it.Index() != 1 {
		t.Fatalf("done advance must not move the cursor, index=%d", it.Index())
	}
}

func TestFileIteratorClampsStart(t *testing.T) {
	it := NewFileIterator([]UploadedFile{{Name: "a"}}, 5)
	if it.Index() != 0 {
		t.Fatalf("out-of-range start must clamp to 0, got %d", it.Index())
	}

	empty := NewFileIterator(nil, 0)
	if _, ok := empty.Current(); ok {
		t.Fatal("empty iterator must report no current file")
	}
	if !empty.Advance() {
		t.Fatal("advance on empty iterator must signal done")
	}
}
