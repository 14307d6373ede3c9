//go:build !simnative

package simulator

// NativeAvailable reports that no native backend is compiled in.
func NativeAvailable() bool { return false }

// NewNative returns ErrNativeUnavailable when built without the simnative tag.
func NewNative(_ string) (Backend, error) {
	return nil, ErrNativeUnavailable
}
