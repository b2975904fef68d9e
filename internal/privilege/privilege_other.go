//go:build !unix

package privilege

func SwitchToUser(string) error {
	return ErrUnsupported
}
