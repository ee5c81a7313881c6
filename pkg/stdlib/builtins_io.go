package stdlib

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wdlrun/wdlrun/pkg/value"
	"github.com/wdlrun/wdlrun/pkg/wdltype"
)

// ioBuiltins implements the filesystem-touching built-ins: stdout, stderr,
// glob, size, the read_* family, and write_lines. None of these are pure
// (spec.md §4.5: "only stdlib calls may do I/O").
func ioBuiltins() []Function {
	return []Function{
		stdoutFn(),
		stderrFn(),
		globFn(),
		sizeFn(),
		readFileFn("read_string", readString),
		readFileFn("read_int", readInt),
		readFileFn("read_float", readFloat),
		readFileFn("read_boolean", readBoolean),
		readLinesFn(),
		writeLinesFn(),
	}
}

func resolvePath(cc CallContext, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(cc.WorkDir, path)
}

func stdoutFn() Function {
	return Function{
		Name: "stdout",
		Pure: false,
		Signatures: []Signature{{Return: Return{Concrete: wdltype.File()}}},
		Call: func(cc CallContext) (value.Value, error) {
			return value.FileVal(resolvePath(cc, "stdout")), nil
		},
	}
}

func stderrFn() Function {
	return Function{
		Name: "stderr",
		Pure: false,
		Signatures: []Signature{{Return: Return{Concrete: wdltype.File()}}},
		Call: func(cc CallContext) (value.Value, error) {
			return value.FileVal(resolvePath(cc, "stderr")), nil
		},
	}
}

func globFn() Function {
	return Function{
		Name: "glob",
		Pure: false,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.String()}},
			Return: Return{Concrete: wdltype.Array(wdltype.File(), false)},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			pattern, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			matches, err := filepath.Glob(resolvePath(cc, pattern.AsString()))
			if err != nil {
				return value.Value{}, err
			}

			out := make([]value.Value, len(matches))
			for i, m := range matches {
				out[i] = value.FileVal(m)
			}

			return value.Array(wdltype.File(), out), nil
		},
	}
}

func sizeFn() Function {
	return Function{
		Name: "size",
		Pure: false,
		Signatures: []Signature{
			{
				Params: []Param{{TypeVar: "A"}},
				Return: Return{Concrete: wdltype.Float()},
			},
			{
				Params: []Param{{TypeVar: "A"}, {Concrete: wdltype.String()}},
				Return: Return{Concrete: wdltype.Float()},
			},
		},
		Call: func(cc CallContext) (value.Value, error) {
			a, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			unit := "B"
			if len(cc.Args) > 1 {
				unit = cc.Args[1].AsString()
			}

			var total int64

			switch a.Type.Kind {
			case wdltype.KindNone:
				// size(None) is 0.0 per common WDL runtime behavior.
			case wdltype.KindFile, wdltype.KindDirectory:
				total, err = fileSize(resolvePath(cc, a.AsString()))
				if err != nil {
					return value.Value{}, err
				}
			case wdltype.KindArray:
				for _, e := range a.AsArray() {
					n, err := fileSize(resolvePath(cc, e.AsString()))
					if err != nil {
						return value.Value{}, err
					}

					total += n
				}
			default:
				return value.Value{}, fmt.Errorf("size: unsupported type %s", a.Type)
			}

			return value.Float(convertSizeUnit(total, unit)), nil
		},
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

//nolint:gochecknoglobals // lookup table, read-only.
var sizeUnits = map[string]float64{
	"B": 1, "KB": 1e3, "MB": 1e6, "GB": 1e9, "TB": 1e12,
	"KiB": 1024, "MiB": 1024 * 1024, "GiB": 1024 * 1024 * 1024, "TiB": 1024 * 1024 * 1024 * 1024,
}

func convertSizeUnit(bytes int64, unit string) float64 {
	div, ok := sizeUnits[unit]
	if !ok {
		div = 1
	}

	return float64(bytes) / div
}

func readFileFn(name string, parse func(string) (value.Value, error)) Function {
	retType := wdltype.String()

	switch name {
	case "read_int":
		retType = wdltype.Int()
	case "read_float":
		retType = wdltype.Float()
	case "read_boolean":
		retType = wdltype.Boolean()
	}

	return Function{
		Name: name,
		Pure: false,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.File()}},
			Return: Return{Concrete: retType},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			f, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			contents, err := os.ReadFile(resolvePath(cc, f.AsString()))
			if err != nil {
				return value.Value{}, err
			}

			return parse(string(contents))
		},
	}
}

// readString trims exactly one trailing newline, never more (the decided
// reading of an ambiguous spec point).
func readString(contents string) (value.Value, error) {
	contents = strings.TrimSuffix(contents, "\n")

	return value.Str(contents), nil
}

func readInt(contents string) (value.Value, error) {
	s, _ := readString(contents)

	n, err := strconv.ParseInt(strings.TrimSpace(s.AsString()), 10, 64)
	if err != nil {
		return value.Value{}, err
	}

	return value.Int(n), nil
}

func readFloat(contents string) (value.Value, error) {
	s, _ := readString(contents)

	f, err := strconv.ParseFloat(strings.TrimSpace(s.AsString()), 64)
	if err != nil {
		return value.Value{}, err
	}

	return value.Float(f), nil
}

func readBoolean(contents string) (value.Value, error) {
	s, _ := readString(contents)

	b, err := strconv.ParseBool(strings.TrimSpace(s.AsString()))
	if err != nil {
		return value.Value{}, err
	}

	return value.Bool(b), nil
}

func readLinesFn() Function {
	return Function{
		Name: "read_lines",
		Pure: false,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.File()}},
			Return: Return{Concrete: wdltype.Array(wdltype.String(), false)},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			f, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			contents, err := os.ReadFile(resolvePath(cc, f.AsString()))
			if err != nil {
				return value.Value{}, err
			}

			text := strings.TrimSuffix(string(contents), "\n")
			if text == "" {
				return value.Array(wdltype.String(), nil), nil
			}

			lines := strings.Split(text, "\n")
			out := make([]value.Value, len(lines))

			for i, l := range lines {
				out[i] = value.Str(l)
			}

			return value.Array(wdltype.String(), out), nil
		},
	}
}

func writeLinesFn() Function {
	return Function{
		Name: "write_lines",
		Pure: false,
		Signatures: []Signature{{
			Params: []Param{{Concrete: wdltype.Array(wdltype.String(), false)}},
			Return: Return{Concrete: wdltype.File()},
		}},
		Call: func(cc CallContext) (value.Value, error) {
			arr, err := requireArg(cc, 0)
			if err != nil {
				return value.Value{}, err
			}

			var sb strings.Builder

			for _, e := range arr.AsArray() {
				sb.WriteString(e.AsString())
				sb.WriteByte('\n')
			}

			tmp, err := os.CreateTemp(cc.WorkDir, "write_lines-*.tmp")
			if err != nil {
				return value.Value{}, err
			}

			defer tmp.Close()

			if _, err := tmp.WriteString(sb.String()); err != nil {
				return value.Value{}, err
			}

			return value.FileVal(tmp.Name()), nil
		},
	}
}
