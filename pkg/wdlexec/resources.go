package wdlexec

import (
	"strconv"
	"strings"

	"github.com/wdlrun/wdlrun/pkg/backend"
	"github.com/wdlrun/wdlrun/pkg/syntax"
)

// taskResources reads a task's runtime { } section, if any, into a
// backend.Resources request. Only cpu/memory/disks/gpu are recognized;
// docker and other runtime keys are ignored here. memory/disks accept a
// bare byte count or a "<n> <unit>" size literal: B, KB/MB/GB (powers of
// 1000) or KiB/MiB/GiB (powers of 1024), unit matched case-insensitively.
func taskResources(task *syntax.Node) backend.Resources {
	var res backend.Resources

	for _, child := range task.Children {
		if child.Kind != syntax.KindRuntimeSection {
			continue
		}

		for _, decl := range child.Children {
			if decl.Kind != syntax.KindDeclaration || len(decl.Children) == 0 {
				continue
			}

			val := decl.Children[0].Token

			switch decl.Token {
			case "cpu":
				if f, err := strconv.ParseFloat(val, 64); err == nil {
					res.CPUCores = f
				}
			case "memory":
				res.MemoryByte = parseSizeLiteral(val)
			case "disks":
				res.DiskByte = parseSizeLiteral(val)
			case "gpu":
				res.GPU = val == "true"
			}
		}
	}

	return res
}

var sizeUnits = map[string]int64{
	"B":   1,
	"KB":  1000,
	"MB":  1000 * 1000,
	"GB":  1000 * 1000 * 1000,
	"KIB": 1024,
	"MIB": 1024 * 1024,
	"GIB": 1024 * 1024 * 1024,
}

// parseSizeLiteral parses a bare integer (bytes) or a "<n> <unit>" size,
// returning 0 if it can't make sense of val.
func parseSizeLiteral(val string) int64 {
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return n
	}

	fields := strings.Fields(val)
	if len(fields) != 2 {
		return 0
	}

	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}

	unit, ok := sizeUnits[strings.ToUpper(fields[1])]
	if !ok {
		return 0
	}

	return int64(n * float64(unit))
}
