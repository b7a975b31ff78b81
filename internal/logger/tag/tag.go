// Package tag provides the canonical attribute keys used in log lines.
package tag

import "log/slog"

func Error(err error) slog.Attr {
	if err != nil {
		return slog.String("error", err.Error())
	}
	return slog.String("error", "")
}

func Workflow(id string) slog.Attr { return slog.String("workflow", id) }

func Node(id string) slog.Attr { return slog.String("node", id) }

func DAG(id string) slog.Attr { return slog.String("dag", id) }

func Tool(name string) slog.Attr { return slog.String("tool", name) }

func Agent(id string) slog.Attr { return slog.String("agent", id) }

func Provider(name string) slog.Attr { return slog.String("provider", name) }

func Model(name string) slog.Attr { return slog.String("model", name) }
