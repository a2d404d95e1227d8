package labels

import "fmt"

// MissingAssetError reports a sensor or label file that a frame requires
// but that does not exist.
type MissingAssetError struct {
	Token int
	Path  string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("frame %d: missing asset %s", e.Token, e.Path)
}

// MalformedLabelError reports a label file that cannot be decoded or lacks
// a required field.
type MalformedLabelError struct {
	Token  int
	Path   string
	Reason string
	Err    error
}

func (e *MalformedLabelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame %d: malformed label %s: %s: %v", e.Token, e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("frame %d: malformed label %s: %s", e.Token, e.Path, e.Reason)
}

func (e *MalformedLabelError) Unwrap() error { return e.Err }
