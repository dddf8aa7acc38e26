package corpus

import "os"

// SeekToBOS positions f at pos, then walks backward byte-by-byte until
// it finds a `\n` (or reaches byte 0), leaving f positioned one byte
// past that newline so reading resumes at a record boundary. Workers
// call this once at startup against their assigned file-size fraction
// so no worker ever splits a record across threads.
func SeekToBOS(f *os.File, pos int64) (int64, error) {
	if pos <= 0 {
		if _, err := f.Seek(0, 0); err != nil {
			return 0, err
		}
		return 0, nil
	}

	buf := make([]byte, 1)
	cur := pos
	for cur > 0 {
		cur--
		if _, err := f.ReadAt(buf, cur); err != nil {
			return 0, err
		}
		if buf[0] == '\n' {
			cur++
			break
		}
	}
	if _, err := f.Seek(cur, 0); err != nil {
		return 0, err
	}
	return cur, nil
}
