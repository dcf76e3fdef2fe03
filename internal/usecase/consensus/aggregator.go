package consensus

import (
	"sort"

	"github.com/bkyoung/review-quorum/internal/domain"
)

// Aggregator turns per-provider finding lists into a shared cross-provider
// view. Aggregation is order-independent: permuting the outcome list yields
// identical groups, representatives, and scores.
type Aggregator struct {
	params SimilarityParams
}

// NewAggregator constructs an Aggregator with the supplied similarity params.
func NewAggregator(params SimilarityParams) *Aggregator {
	return &Aggregator{params: params}
}

// taggedFinding attributes a finding to the provider that reported it.
type taggedFinding struct {
	providerID string
	finding    domain.Finding
}

// Aggregate partitions all findings into consensus groups (reported by ≥2
// distinct providers) and unique findings, and computes histograms and the
// agreement score. Every individual finding counts toward the histograms; a
// consensus group counts once toward ConsensusFindings.
func (a *Aggregator) Aggregate(outcomes []domain.ProviderOutcome) domain.AggregationResult {
	tagged := flatten(outcomes)

	uf := newUnionFind(len(tagged))
	for i := 0; i < len(tagged); i++ {
		for j := i + 1; j < len(tagged); j++ {
			if tagged[i].providerID == tagged[j].providerID {
				continue
			}
			if a.params.Similar(tagged[i].finding, tagged[j].finding) {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := range tagged {
		root := uf.find(i)
		groups[root] = append(groups[root], i)
	}

	result := domain.AggregationResult{
		TotalFindings:      len(tagged),
		FindingsBySeverity: make(map[domain.Severity]int),
		FindingsByCategory: make(map[domain.Category]int),
		UniqueFindings:     make(map[string][]domain.Finding),
	}

	for _, tf := range tagged {
		result.FindingsBySeverity[tf.finding.Severity]++
		result.FindingsByCategory[tf.finding.Category]++
	}

	grouped := 0
	consensusRoots := make(map[int]bool)
	for root, members := range groups {
		providers := distinctProviders(tagged, members)
		if len(providers) >= 2 {
			grouped += len(members)
			consensusRoots[root] = true
			result.ConsensusFindings = append(result.ConsensusFindings, domain.ConsensusGroup{
				Representative:      selectRepresentative(tagged, members),
				SupportingProviders: providers,
				Size:                len(providers),
			})
		}
	}

	// Walk findings in flattened order so each provider's unique list keeps
	// that provider's reporting order.
	for i, tf := range tagged {
		if !consensusRoots[uf.find(i)] {
			result.UniqueFindings[tf.providerID] = append(result.UniqueFindings[tf.providerID], tf.finding)
		}
	}

	sortGroups(result.ConsensusFindings)

	if len(tagged) > 0 {
		score := float64(grouped) / float64(len(tagged))
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		result.AgreementScore = score
	}

	return result
}

// flatten collects every finding with its provider tag, ordered by provider
// ID so the partition does not depend on the caller's adapter order. Findings
// keep their within-provider order.
func flatten(outcomes []domain.ProviderOutcome) []taggedFinding {
	ordered := make([]domain.ProviderOutcome, len(outcomes))
	copy(ordered, outcomes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ProviderID < ordered[j].ProviderID
	})

	var tagged []taggedFinding
	for _, o := range ordered {
		for _, f := range o.Findings {
			tagged = append(tagged, taggedFinding{providerID: o.ProviderID, finding: f})
		}
	}
	return tagged
}

func distinctProviders(tagged []taggedFinding, members []int) []string {
	seen := make(map[string]bool)
	var providers []string
	for _, idx := range members {
		id := tagged[idx].providerID
		if !seen[id] {
			seen[id] = true
			providers = append(providers, id)
		}
	}
	sort.Strings(providers)
	return providers
}

// selectRepresentative picks the group's representative finding
// deterministically: highest confidence first (missing confidence ranks
// lowest), then lexicographically first provider ID, then lowest line number,
// then message.
func selectRepresentative(tagged []taggedFinding, members []int) domain.Finding {
	best := members[0]
	for _, idx := range members[1:] {
		if representativeLess(tagged[idx], tagged[best]) {
			best = idx
		}
	}
	return tagged[best].finding
}

func representativeLess(a, b taggedFinding) bool {
	ca, cb := confidenceOf(a.finding), confidenceOf(b.finding)
	if ca != cb {
		return ca > cb
	}
	if a.providerID != b.providerID {
		return a.providerID < b.providerID
	}
	la, lb := lineOf(a.finding), lineOf(b.finding)
	if la != lb {
		return la < lb
	}
	return a.finding.Message < b.finding.Message
}

func confidenceOf(f domain.Finding) float64 {
	if f.Confidence == nil {
		return -1
	}
	return *f.Confidence
}

// lineOf treats missing line numbers as after any real line.
func lineOf(f domain.Finding) int {
	if f.LineNumber == nil {
		return int(^uint(0) >> 1)
	}
	return *f.LineNumber
}

// sortGroups orders consensus groups by intrinsic finding properties so the
// output order is stable under permutation of the input.
func sortGroups(groups []domain.ConsensusGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Representative, groups[j].Representative
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if lineOf(a) != lineOf(b) {
			return lineOf(a) < lineOf(b)
		}
		return a.Message < b.Message
	})
}
