package lineage

import (
	"fmt"

	"github.com/mirrordna/ledger/internal/canon"
	"github.com/mirrordna/ledger/internal/checksum"
)

// FindingKind labels one class of chain defect.
type FindingKind string

const (
	// FindingMissingLink marks a predecessor reference the chain does not
	// resolve.
	FindingMissingLink FindingKind = "MISSING_LINK"
	// FindingDuplicate marks an artifact ID appearing more than once, which
	// includes cycles folded into the chain.
	FindingDuplicate FindingKind = "DUPLICATE_ARTIFACT"
	// FindingChecksumMismatch marks a stored checksum that does not match a
	// recomputation over the supplied content.
	FindingChecksumMismatch FindingKind = "CHECKSUM_MISMATCH"
)

// Finding is one defect discovered while verifying a chain.
type Finding struct {
	Kind       FindingKind
	ArtifactID string
	Detail     string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s artifact=%s: %s", f.Kind, f.ArtifactID, f.Detail)
}

// Report is the result of verifying a chain. ContentVerified is false when
// no content was supplied for any record, in which case only the link
// structure was checked.
type Report struct {
	Findings        []Finding
	ContentVerified bool
}

// Valid reports whether no findings were raised.
func (r Report) Valid() bool { return len(r.Findings) == 0 }

// VerifyChain checks a chain ordered oldest-first: the root record leads,
// every later record's predecessor reference must resolve to the record
// immediately before it, no artifact ID may repeat, and where contents
// supplies an artifact's content its stored checksum is recomputed. A nil or
// empty contents map degrades to link-structure verification only, reported
// via Report.ContentVerified. Defects are findings, never errors; detection
// is the point of the call.
func VerifyChain(chain []Record, contents map[string]canon.Value) Report {
	report := Report{}

	seen := make(map[string]struct{}, len(chain))
	for i, r := range chain {
		if _, dup := seen[r.ArtifactID]; dup {
			report.Findings = append(report.Findings, Finding{
				Kind:       FindingDuplicate,
				ArtifactID: r.ArtifactID,
				Detail:     "artifact appears more than once in the chain",
			})
			continue
		}
		seen[r.ArtifactID] = struct{}{}

		switch {
		case r.PredecessorID == nil:
			if i != 0 {
				report.Findings = append(report.Findings, Finding{
					Kind:       FindingMissingLink,
					ArtifactID: r.ArtifactID,
					Detail:     "root record is not the head of the chain",
				})
			}
		case i == 0:
			report.Findings = append(report.Findings, Finding{
				Kind:       FindingMissingLink,
				ArtifactID: r.ArtifactID,
				Detail:     fmt.Sprintf("predecessor %s is not in the chain", *r.PredecessorID),
			})
		case chain[i-1].ArtifactID != *r.PredecessorID:
			report.Findings = append(report.Findings, Finding{
				Kind:       FindingMissingLink,
				ArtifactID: r.ArtifactID,
				Detail: fmt.Sprintf("predecessor %s does not match previous record %s",
					*r.PredecessorID, chain[i-1].ArtifactID),
			})
		}

		if content, ok := contents[r.ArtifactID]; ok {
			report.ContentVerified = true
			match, err := checksum.Verify(content, r.Checksum)
			if err != nil {
				report.Findings = append(report.Findings, Finding{
					Kind:       FindingChecksumMismatch,
					ArtifactID: r.ArtifactID,
					Detail:     fmt.Sprintf("content not hashable: %v", err),
				})
			} else if !match {
				report.Findings = append(report.Findings, Finding{
					Kind:       FindingChecksumMismatch,
					ArtifactID: r.ArtifactID,
					Detail:     "stored checksum does not match recomputation",
				})
			}
		}
	}

	return report
}
