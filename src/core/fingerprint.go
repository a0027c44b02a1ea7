// Rule hashes decide whether the ninja fragment of a target needs regenerating.
//
// A target's hash covers its type, name and sources, the keys and hashes of its dependencies
// and whatever else its kind declares as relevant. It changes whenever the declared
// content of the target or anything it transitively depends on changes.

package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// hashCache is the memoised rule hash of a target.
type hashCache struct {
	digest     []byte
	inProgress bool
}

// RuleHash returns the rule hash of the target, calculating it on the first call.
func (target *Target) RuleHash() ([]byte, error) {
	return target.ruleHash(nil)
}

// RuleHashString returns the rule hash as a hex string.
func (target *Target) RuleHashString() (string, error) {
	h, err := target.RuleHash()
	return hex.EncodeToString(h), err
}

func (target *Target) ruleHash(chain []TargetKey) ([]byte, error) {
	if target.hash.digest != nil {
		return target.hash.digest, nil
	} else if target.hash.inProgress {
		return nil, newCycleError(chain, target.Key)
	}
	target.hash.inProgress = true
	defer func() { target.hash.inProgress = false }()
	chain = append(chain, target.Key)

	deps := make([]string, 0, len(target.deps))
	for _, key := range target.deps {
		dep, err := target.state.Graph.Lookup(key, target)
		if err != nil {
			return nil, err
		}
		h, err := dep.ruleHash(chain)
		if err != nil {
			return nil, err
		}
		deps = append(deps, key.String()+"="+hex.EncodeToString(h))
	}
	factors := map[string]interface{}{
		"type": target.Type,
		"name": target.Key.Name,
		"srcs": nonNil(target.Srcs),
		"deps": deps,
	}
	for k, v := range target.hashFactors() {
		factors[k] = v
	}
	// encoding/json writes map keys in sorted order, which makes this stable.
	b, err := json.Marshal(factors)
	if err != nil {
		return nil, fmt.Errorf("Can't hash %s: %w", target, err)
	}
	digest := blake3.Sum256(b)
	target.hash.digest = digest[:]
	return target.hash.digest, nil
}

// hashFactors returns the extra things that contribute to the hash. By default that's the
// target's kind-specific data; outputs aren't included since they're only known after
// rules are generated.
func (target *Target) hashFactors() map[string]interface{} {
	if f, ok := target.Kind.(HashFactorer); ok {
		return f.HashFactors(target)
	}
	return target.data()
}
