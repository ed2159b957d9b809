package links

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/clickurl"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Synthesizer builds deterministic tracking and destination URLs.
type Synthesizer struct {
	signer *clickurl.Signer
}

// NewSynthesizer creates a Synthesizer signing refs with secret.
func NewSynthesizer(secret string) *Synthesizer {
	return &Synthesizer{signer: clickurl.NewSigner(secret)}
}

// Synthesized is the URL pair for one link.
type Synthesized struct {
	TrackingURL    string
	DestinationURL string
}

// Synthesize builds URLs for product on platform through program c. The
// credential may be nil. Identical inputs always give identical output.
func (s *Synthesizer) Synthesize(
	product *domain.Product,
	platform domain.Platform,
	c domain.Candidate,
	cred *domain.Credential,
) (Synthesized, error) {
	dest := Destination(c.URL, product.CanonicalURL(platform))
	if dest == "" {
		return Synthesized{}, fmt.Errorf("%w: no destination url", domain.ErrNoPlatformIdentifier)
	}

	u, err := url.Parse(dest)
	if err != nil {
		return Synthesized{}, fmt.Errorf("parse destination %q: %w", dest, err)
	}

	q := u.Query()
	q.Set("utm_source", string(platform))
	q.Set("utm_medium", medium(platform))
	q.Set("utm_campaign", campaign(product.Name))
	q.Set("ref", s.signer.Ref(clickurl.LinkParams{
		ProductID: product.ID,
		Platform:  string(platform),
		Program:   c.Name,
	}))

	trackingID := cred.TrackingID()
	if platform == domain.PlatformAmazon {
		q.Set("linkCode", "as2")
		if trackingID != "" {
			q.Set("tag", trackingID)
		}
	} else if trackingID != "" {
		q.Set("aff_id", trackingID)
	}

	tracked := *u
	tracked.RawQuery = q.Encode()
	tracked.Fragment = ""

	return Synthesized{TrackingURL: tracked.String(), DestinationURL: dest}, nil
}

// VerifyRef reports whether the ref on a tracking URL was signed for link.
func (s *Synthesizer) VerifyRef(link *domain.AffiliateLink) bool {
	u, err := url.Parse(link.TrackingURL)
	if err != nil {
		return false
	}
	return s.signer.VerifyRef(clickurl.LinkParams{
		ProductID: link.ProductID,
		Platform:  string(link.Platform),
		Program:   link.ProgramName,
	}, u.Query().Get("ref"))
}

// Destination picks the more specific of the program URL and the product's
// canonical URL. Ties go to the program URL.
func Destination(candidateURL, canonicalURL string) string {
	cs, ps := specificity(candidateURL), specificity(canonicalURL)
	switch {
	case cs < 0 && ps < 0:
		return ""
	case cs >= ps:
		return candidateURL
	default:
		return canonicalURL
	}
}

// specificity counts non-empty path segments plus one for a query string.
// Unusable URLs score -1.
func specificity(raw string) int {
	if strings.TrimSpace(raw) == "" {
		return -1
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return -1
	}

	n := 0
	for seg := range strings.SplitSeq(u.Path, "/") {
		if seg != "" {
			n++
		}
	}
	if u.RawQuery != "" {
		n++
	}
	return n
}

func medium(platform domain.Platform) string {
	switch platform {
	case domain.PlatformInstagram:
		return "shopping"
	case domain.PlatformPinterest:
		return "pin"
	case domain.PlatformTikTok, domain.PlatformAmazon, domain.PlatformYouTube,
		domain.PlatformFacebook, domain.PlatformGeneric:
	}
	return "affiliate"
}

func campaign(productName string) string {
	return strings.Join(strings.Fields(strings.ToLower(productName)), "_")
}
