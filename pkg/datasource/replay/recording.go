package replay

import "github.com/peter-kozarec/ecgmon/pkg/datasource"

// Recording replays codes held in memory.
type Recording struct {
	codes []uint16
	pos   int
}

func NewRecording(codes []uint16) *Recording {
	return &Recording{codes: codes}
}

func (r *Recording) GetNext() (uint16, error) {
	if r.pos >= len(r.codes) {
		return 0, datasource.ErrEof
	}
	code := r.codes[r.pos]
	r.pos++
	return code, nil
}

func (r *Recording) Len() int {
	return len(r.codes)
}

func (r *Recording) Rewind() {
	r.pos = 0
}
