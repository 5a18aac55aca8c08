package wstrust

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// ErrMalformedResponse reports an issuance response whose body is not a
// well-formed XML document.
var ErrMalformedResponse = errors.New("wstrust: malformed response")

// ExtractToken validates that body is a well-formed XML document and returns
// its serialized form: the complete RequestSecurityTokenResponse SOAP
// envelope as the STS produced it. Nothing inside the token is inspected;
// claims and signatures are the consumer's problem.
func ExtractToken(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if doc.Root() == nil {
		return "", fmt.Errorf("%w: no document element", ErrMalformedResponse)
	}

	token, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serializing token document: %w", err)
	}
	return token, nil
}
