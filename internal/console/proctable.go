package console

import (
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// relayFinder reports whether a relay for the given port is alive. The
// production implementation scans the OS process table; tests substitute
// their own.
type relayFinder interface {
	Running(relayPort int) (bool, error)
}

// processScanner locates relay processes by walking the live process table.
// Relays are not tracked anywhere persistent, so the table is the source of
// truth after a virtforge restart.
type processScanner struct {
	tool string
}

func newProcessScanner(tool string) *processScanner {
	return &processScanner{tool: tool}
}

// Running reports whether a process whose command line names the relay tool
// and carries the exact port token exists. The relay tool may itself run
// under an interpreter, so the tool name is matched anywhere in the command
// line while the port must be its own argument.
func (s *processScanner) Running(relayPort int) (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, err
	}

	port := strconv.Itoa(relayPort)
	for _, p := range procs {
		args, err := p.CmdlineSlice()
		if err != nil || len(args) == 0 {
			// Processes we cannot read (or that exited mid-scan) are
			// not ours.
			continue
		}
		if !strings.Contains(strings.Join(args, " "), s.tool) {
			continue
		}
		for _, arg := range args {
			if arg == port {
				return true, nil
			}
		}
	}
	return false, nil
}
