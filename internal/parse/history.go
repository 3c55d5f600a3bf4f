package parse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ardent-labs/sleuth/internal/model"
)

// HistoryLine is one command of a shell history. Time is zero when the
// history format does not record it.
type HistoryLine struct {
	Command string
	Time    time.Time
}

// epoch converts unix seconds; implausible values give the zero time
func epoch(sec int64) time.Time {
	return model.KnownTime(time.Unix(sec, 0).UTC())
}

func scanLines(r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}

// Bash parses ~/.bash_history. With HISTTIMEFORMAT set bash writes a
// "#<epoch>" comment before every command.
func Bash(r io.Reader) ([]HistoryLine, error) {
	var ret []HistoryLine
	var ts time.Time
	err := scanLines(r, func(line string) {
		if strings.HasPrefix(line, "#") {
			if sec, err := strconv.ParseInt(line[1:], 10, 64); err == nil {
				ts = epoch(sec)
				return
			}
		}
		if strings.TrimSpace(line) == "" {
			return
		}
		ret = append(ret, HistoryLine{Command: line, Time: ts})
		ts = time.Time{}
	})
	return ret, err
}

// Zsh parses ~/.zsh_history, both plain and in the extended format
// ": <epoch>:<duration>;<command>". Multi line commands are joined.
func Zsh(r io.Reader) ([]HistoryLine, error) {
	var ret []HistoryLine
	var cont bool
	err := scanLines(r, func(line string) {
		if cont && len(ret) > 0 {
			last := &ret[len(ret)-1]
			last.Command = strings.TrimSuffix(last.Command, `\`) + "\n" + line
			cont = strings.HasSuffix(line, `\`)
			return
		}
		h := HistoryLine{Command: line}
		if strings.HasPrefix(line, ": ") {
			meta, cmd, ok := strings.Cut(line[2:], ";")
			if ok {
				es, _, _ := strings.Cut(meta, ":")
				if sec, err := strconv.ParseInt(es, 10, 64); err == nil {
					h = HistoryLine{Command: cmd, Time: epoch(sec)}
				}
			}
		}
		if strings.TrimSpace(h.Command) == "" {
			return
		}
		cont = strings.HasSuffix(line, `\`)
		ret = append(ret, h)
	})
	return ret, err
}

// Fish parses ~/.local/share/fish/fish_history:
//
//	- cmd: ls -la
//	  when: 1700000000
func Fish(r io.Reader) ([]HistoryLine, error) {
	var ret []HistoryLine
	err := scanLines(r, func(line string) {
		switch {
		case strings.HasPrefix(line, "- cmd: "):
			ret = append(ret, HistoryLine{Command: strings.TrimPrefix(line, "- cmd: ")})
		case strings.HasPrefix(strings.TrimSpace(line), "when:") && len(ret) > 0:
			v := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "when:"))
			if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
				ret[len(ret)-1].Time = epoch(sec)
			}
		}
	})
	return ret, err
}

// PSReadLine parses ConsoleHost_history.txt. The file carries no timestamps;
// lines ending with a backtick continue on the next line.
func PSReadLine(r io.Reader) ([]HistoryLine, error) {
	var ret []HistoryLine
	var cont bool
	err := scanLines(r, func(line string) {
		if cont && len(ret) > 0 {
			last := &ret[len(ret)-1]
			last.Command += "\n" + line
			cont = strings.HasSuffix(line, "`")
			return
		}
		if strings.TrimSpace(line) == "" {
			return
		}
		cont = strings.HasSuffix(line, "`")
		ret = append(ret, HistoryLine{Command: line})
	})
	return ret, err
}
