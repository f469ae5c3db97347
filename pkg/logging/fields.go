package logging

import "log/slog"

// Domain identifiers

func User(id string) slog.Attr {
	return slog.String("user_id", id)
}

func Connection(id int64) slog.Attr {
	return slog.Int64("connection_id", id)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func Project(id string) slog.Attr {
	return slog.String("project_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
