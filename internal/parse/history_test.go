package parse_test

import (
	"strings"
	"testing"
	"time"

	"github.com/ardent-labs/sleuth/internal/parse"
	"github.com/stretchr/testify/require"
)

func TestShellHistory(t *testing.T) {
	t.Parallel()
	ts := time.Unix(1700000000, 0).UTC()

	var testCases = []struct {
		scenario string
		parse    func(string) ([]parse.HistoryLine, error)
		given    string
		then     []parse.HistoryLine
	}{
		{
			scenario: "bash",
			parse:    func(s string) ([]parse.HistoryLine, error) { return parse.Bash(strings.NewReader(s)) },
			given:    "#1700000000\njava -jar x.jar\n\nls\n",
			then: []parse.HistoryLine{
				{Command: "java -jar x.jar", Time: ts},
				{Command: "ls"},
			},
		},
		{
			scenario: "zsh",
			parse:    func(s string) ([]parse.HistoryLine, error) { return parse.Zsh(strings.NewReader(s)) },
			given:    ": 1700000000:0;ls -la\n: 1700000060:2;echo a\\\nb\nplain\n",
			then: []parse.HistoryLine{
				{Command: "ls -la", Time: ts},
				{Command: "echo a\nb", Time: ts.Add(time.Minute)},
				{Command: "plain"},
			},
		},
		{
			scenario: "fish",
			parse:    func(s string) ([]parse.HistoryLine, error) { return parse.Fish(strings.NewReader(s)) },
			given:    "- cmd: ls\n  when: 1700000000\n- cmd: pwd\n  paths:\n    - /tmp\n",
			then: []parse.HistoryLine{
				{Command: "ls", Time: ts},
				{Command: "pwd"},
			},
		},
		{
			scenario: "out of range epochs",
			parse: func(string) ([]parse.HistoryLine, error) {
				bash, err := parse.Bash(strings.NewReader("#99999999999\njava -jar x.jar\n"))
				if err != nil {
					return nil, err
				}
				zsh, err := parse.Zsh(strings.NewReader(": 99999999999:0;ls\n"))
				if err != nil {
					return nil, err
				}
				fish, err := parse.Fish(strings.NewReader("- cmd: pwd\n  when: -99999999999\n"))
				return append(append(bash, zsh...), fish...), err
			},
			then: []parse.HistoryLine{
				{Command: "java -jar x.jar"},
				{Command: "ls"},
				{Command: "pwd"},
			},
		},
		{
			scenario: "psreadline",
			parse:    func(s string) ([]parse.HistoryLine, error) { return parse.PSReadLine(strings.NewReader(s)) },
			given:    "Get-Process\nWrite-Host `\n  hello\n\n",
			then: []parse.HistoryLine{
				{Command: "Get-Process"},
				{Command: "Write-Host `\n  hello"},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			got, err := tc.parse(tc.given)
			require.NoError(t, err)
			require.Equal(t, tc.then, got)
		})
	}
}
