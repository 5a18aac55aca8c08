//go:build !windows
// +build !windows

package probe

import "errors"

// CurrentUser is only available on Windows, where SSPI can mint Negotiate
// tokens from the logon session. On other platforms use Kerberos with a
// ticket cache, or NTLM with explicit credentials.
func CurrentUser() (Identity, error) {
	return nil, errors.New("current-user authentication requires Windows SSPI; use a kerberos ticket cache or explicit credentials")
}
