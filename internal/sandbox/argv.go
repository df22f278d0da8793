package sandbox

import "github.com/anmitsu/go-shlex"

// ParseArgv splits a door/program command line into argv, honoring
// quoting the way a shell would (spec.md §4.5 argv). go-shlex was
// already an indirect dependency of the teacher's module (pulled in
// transitively, never imported); this promotes it to the direct argv
// splitter original_source/bbs/system.c hand-rolls as bbs_argv_from_str.
func ParseArgv(command string) ([]string, error) {
	return shlex.Split(command, true)
}
