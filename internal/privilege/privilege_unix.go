//go:build unix

package privilege

import (
	"fmt"
	"os/user"
	"strconv"
	"syscall"
)

// SwitchToUser makes the process run on behalf of the user and their primary group. The
// group is switched first, as it's not possible anymore once the user is.
func SwitchToUser(name string) error {
	u, err := user.Lookup(name)
	if err != nil {
		return fmt.Errorf("looking up user %q: %w", name, err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parsing uid of %q: %w", name, err)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parsing gid of %q: %w", name, err)
	}

	if syscall.Getuid() == uid && syscall.Getgid() == gid {
		return nil
	}

	if err = syscall.Setgroups([]int{gid}); err != nil {
		return fmt.Errorf("setting supplementary groups: %w", err)
	}

	if err = syscall.Setgid(gid); err != nil {
		return fmt.Errorf("switching to group %d: %w", gid, err)
	}

	if err = syscall.Setuid(uid); err != nil {
		return fmt.Errorf("switching to user %q: %w", name, err)
	}

	return nil
}
