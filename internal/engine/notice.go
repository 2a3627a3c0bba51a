package engine

// NoticeKind says where a notice came from.
type NoticeKind int

const (
	// NoticeRemote reports a failed sign in, sync or remote write.
	NoticeRemote NoticeKind = iota + 1
	// NoticeAI reports a failed assistant request. The triggering add has
	// already completed without it.
	NoticeAI
	// NoticeLive reports that live updates from the family stopped.
	NoticeLive
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeRemote:
		return "remote"
	case NoticeAI:
		return "ai"
	case NoticeLive:
		return "live"
	default:
		return "unknown"
	}
}

// Notice is a non-blocking message for the user. Local state is never rolled
// back when one is raised.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}
