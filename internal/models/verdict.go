package models

// Verdict is the outcome of one admission judgement. "not registered" and "expired"
// are verdicts, not errors.
type Verdict struct {
	Valid     bool
	Result    Result
	Comment   string
	IsReentry bool
	Ticket    *Ticket
}

func NotRegistered() Verdict {
	return Verdict{Valid: false, Result: ResultNG, Comment: CommentNotRegistered}
}

func Expired(t *Ticket) Verdict {
	return Verdict{Valid: false, Result: ResultNG, Comment: CommentExpired, Ticket: t}
}

func Admitted(t *Ticket, reentry bool) Verdict {
	v := Verdict{Valid: true, Result: ResultOK, IsReentry: reentry, Ticket: t}
	if reentry {
		v.Comment = CommentReentry
	}
	return v
}
