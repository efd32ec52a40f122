package core

// Outcome is the result of authenticating a request: exactly one of
// Identity or Failure is set.
type Outcome struct {
	Identity *Identity
	Failure  *Failure
}

// Succeeded returns a successful Outcome for the identity.
func Succeeded(identity *Identity) Outcome {
	return Outcome{Identity: identity}
}

// Failed returns a failed Outcome.
func Failed(reason FailureReason, detail string, err error) Outcome {
	return Outcome{Failure: NewFailure(reason, detail, err)}
}

// OK reports whether the request was authenticated.
func (o Outcome) OK() bool {
	return o.Failure == nil && o.Identity != nil
}

// Err returns the failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Failure != nil {
		return o.Failure
	}
	if o.Identity == nil {
		return NewFailure(ReasonMalformedToken, "empty outcome", nil)
	}
	return nil
}

// Reason returns the failure reason, or the empty string on success.
func (o Outcome) Reason() FailureReason {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Reason
}
