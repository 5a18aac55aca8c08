package probe

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/credentials"
	"github.com/jcmturner/gokrb5/v8/spnego"
)

// Kerberos returns an identity that authenticates with SPNEGO using the
// current user's ticket cache, which is how windowstransport is reachable
// from a non-Windows host: kinit first, then probe. spn overrides the
// service principal presented to the KDC; leave it empty to derive
// HTTP/<host> from the endpoint.
func Kerberos(spn string) Identity {
	return krbIdentity{spn: spn}
}

type krbIdentity struct {
	spn string
}

func (krbIdentity) Name() string {
	return "kerberos"
}

func (k krbIdentity) Client(base http.RoundTripper, timeout time.Duration) (HTTPDoer, error) {
	cl, err := ccacheClient()
	if err != nil {
		return nil, err
	}
	return spnego.NewClient(cl, &http.Client{Transport: base, Timeout: timeout}, k.spn), nil
}

// ccacheClient builds a Kerberos client from the caller's environment the
// same way curl and kvno do: KRB5CCNAME for the cache, KRB5_CONFIG for the
// library configuration, with the usual defaults for both.
func ccacheClient() (*client.Client, error) {
	path := strings.TrimPrefix(os.Getenv("KRB5CCNAME"), "FILE:")
	if path == "" {
		path = fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
	}
	ccache, err := credentials.LoadCCache(path)
	if err != nil {
		return nil, fmt.Errorf("loading ticket cache %s (run kinit first): %w", path, err)
	}

	cfgPath := os.Getenv("KRB5_CONFIG")
	if cfgPath == "" {
		cfgPath = "/etc/krb5.conf"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", cfgPath, err)
	}

	cl, err := client.NewFromCCache(ccache, cfg, client.DisablePAFXFAST(true))
	if err != nil {
		return nil, fmt.Errorf("initializing kerberos client: %w", err)
	}
	return cl, nil
}
