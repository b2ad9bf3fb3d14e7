package cfgfile

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/ibuild/ib/internal/ibex"
)

// hostPlatform maps Go's GOOS onto the platform names a .cfg file's
// `platform_is()` calls expect, e.g. `platform_is("Darwin")` on macOS.
func hostPlatform() string {
	switch runtime.GOOS {
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}

// evalString evaluates an expr expected to produce a single string.
func evalString(e expr) (string, error) {
	switch v := e.(type) {
	case strLit:
		return v.Value, nil
	case call:
		return evalStringCall(v)
	case condExpr:
		ok, err := evalBool(v.Cond)
		if err != nil {
			return "", err
		}
		if ok {
			return evalString(v.Then)
		}
		return evalString(v.Else)
	default:
		return "", ibex.New(ibex.Config, "expression does not evaluate to a string")
	}
}

// evalList evaluates an expr expected to produce a []string.
func evalList(e expr) ([]string, error) {
	switch v := e.(type) {
	case listLit:
		out := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			s, err := evalString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case call:
		return evalListCall(v)
	case condExpr:
		ok, err := evalBool(v.Cond)
		if err != nil {
			return nil, err
		}
		if ok {
			return evalList(v.Then)
		}
		return evalList(v.Else)
	default:
		return nil, ibex.New(ibex.Config, "expression does not evaluate to a list")
	}
}

func evalStringCall(c call) (string, error) {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		s, err := evalString(a)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	switch c.Name {
	case "env":
		switch len(args) {
		case 1:
			return os.Getenv(args[0]), nil
		case 2:
			if v, ok := os.LookupEnv(args[0]); ok {
				return v, nil
			}
			return args[1], nil
		default:
			return "", ibex.New(ibex.Config, "env() takes 1 or 2 arguments")
		}
	case "platform":
		return hostPlatform(), nil
	default:
		return "", ibex.New(ibex.Config, "unknown function %q", c.Name)
	}
}

func evalListCall(c call) ([]string, error) {
	switch c.Name {
	case "envlist":
		if len(c.Args) != 1 {
			return nil, ibex.New(ibex.Config, "envlist() takes exactly 1 argument")
		}
		name, err := evalString(c.Args[0])
		if err != nil {
			return nil, err
		}
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil, nil
		}
		return strings.Fields(v), nil
	default:
		return nil, ibex.New(ibex.Config, "unknown list function %q", c.Name)
	}
}

func evalBool(b boolExpr) (bool, error) {
	switch v := b.(type) {
	case boolCall:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			s, err := evalString(a)
			if err != nil {
				return false, err
			}
			args[i] = s
		}
		switch v.Name {
		case "has_env":
			if len(args) != 1 {
				return false, ibex.New(ibex.Config, "has_env() takes exactly 1 argument")
			}
			_, ok := os.LookupEnv(args[0])
			return ok, nil
		case "platform_is":
			if len(args) != 1 {
				return false, ibex.New(ibex.Config, "platform_is() takes exactly 1 argument")
			}
			return hostPlatform() == args[0], nil
		default:
			return false, ibex.New(ibex.Config, "unknown condition function %q", v.Name)
		}
	case boolNot:
		inner, err := evalBool(v.Operand)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case boolBinary:
		left, err := evalBool(v.Left)
		if err != nil {
			return false, err
		}
		right, err := evalBool(v.Right)
		if err != nil {
			return false, err
		}
		if v.Op == "and" {
			return left && right, nil
		}
		return left || right, nil
	default:
		return false, fmt.Errorf("unknown boolean expression")
	}
}
