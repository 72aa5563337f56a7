package logging

import (
	"bufio"
	"os"
)

// TailLines returns up to the last n lines of the file at path.
func TailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// errors.log is truncated on every start so a full scan stays cheap.
	buf := make([]string, 0, n)
	s := bufio.NewScanner(f)
	for s.Scan() {
		if n <= 0 {
			continue
		}
		line := s.Text()
		if len(buf) < n {
			buf = append(buf, line)
			continue
		}
		copy(buf, buf[1:])
		buf[n-1] = line
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}
