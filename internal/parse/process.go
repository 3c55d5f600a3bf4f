package parse

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ardent-labs/sleuth/internal/model"
)

// Tasklist parses `tasklist /FO CSV /NH` output. The optional header row is
// skipped.
func Tasklist(out string) ([]model.Process, error) {
	rows, err := readCSV(out)
	if err != nil {
		return nil, err
	}
	ret := make([]model.Process, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		pid, err := strconv.ParseInt(row[1], 10, 32)
		if err != nil {
			continue
		}
		ret = append(ret, model.Process{PID: int32(pid), Name: row[0]})
	}
	return ret, nil
}

const lstartLayout = "Mon Jan 2 15:04:05 2006"

// PS parses `ps -axo pid=,lstart=,args=` output. Lines produced by
// `ps -axo pid=,args=` are accepted as well, with a zero start time.
func PS(out string, loc *time.Location) []model.Process {
	if loc == nil {
		loc = time.Local
	}
	var ret []model.Process
	for line := range strings.Lines(out) {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			continue
		}
		p := model.Process{PID: int32(pid)}
		args := fields[1:]
		if len(fields) >= 7 {
			if t, err := time.ParseInLocation(lstartLayout, strings.Join(fields[1:6], " "), loc); err == nil {
				p.Started = t
				args = fields[6:]
			}
		}
		if len(args) == 0 {
			continue
		}
		p.Cmdline = strings.Join(args, " ")
		p.Name = Base(args[0])
		ret = append(ret, p)
	}
	return ret
}

// CSV parses the output of PowerShell `ConvertTo-Csv -NoTypeInformation`
// into one map per row keyed by the header.
func CSV(out string) ([]map[string]string, error) {
	rows, err := readCSV(out)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	ret := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				m[h] = row[i]
			}
		}
		ret = append(ret, m)
	}
	return ret, nil
}

func readCSV(out string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, err
		}
		if len(row) == 0 || strings.HasPrefix(row[0], "#TYPE") {
			continue
		}
		if row[0] == "Image Name" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
