package flow

// FileIterator walks the uploaded file list for stages that must process
// every file before advancing (header confirmation, missing-value strategy).
// The index is local to the stage: advancing past the last file means the
// stage's own onNext should fire, retreating before the first means the
// global onBack should fire. The owning stage may mirror the index into the
// store's stage cursor so resume is not lossy.
type FileIterator struct {
	files []UploadedFile
	index int
}

// NewFileIterator builds an iterator positioned at start, clamped into range.
func NewFileIterator(files []UploadedFile, start int) *FileIterator {
	if start < 0 || start >= len(files) {
		start = 0
	}
	return &FileIterator{files: files, index: start}
}

// Current returns the file under the cursor. ok is false for an empty list.
func (it *FileIterator) Current() (UploadedFile, bool) {
	if len(it.files) == 0 {
		return UploadedFile{}, false
	}
	return it.files[it.index], true
}

// Index returns the cursor position.
func (it *FileIterator) Index() int {
	return it.index
}

// Len returns the number of files being iterated.
func (it *FileIterator) Len() int {
	return len(it.files)
}

// Advance moves to the next file. done=true means the cursor was already on
// the last file (or the list is empty) and the stage should call onNext.
func (it *FileIterator) Advance() (done bool) {
	if it.index+1 >= len(it.files) {
		return true
	}
	it.index++
	return false
}

// Retreat moves to the previous file. atStart=true means the cursor was
// already on the first file and the stage should call the global onBack.
func (it *FileIterator) Retreat() (atStart bool) {
	if it.index == 0 {
		return true
	}
	it.index--
	return false
}
