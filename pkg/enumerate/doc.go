// Package enumerate implements exhaustive member enumeration against a
// capped listing API.
//
// A single filtered participant query returns at most a server-fixed
// number of results, so one query can never see a large channel in full.
// The engine splits the collection across a filter alphabet (the empty
// filter first, then a..z, then 0..9), drains each filter with offset
// pagination, and merges the batches into one identity-unique set.
//
// Example usage:
//
//	client, _ := telegram.New(telegram.DefaultConfig(gatewayURL, token))
//	orch := enumerate.New(client, enumerate.DefaultConfig())
//	result, err := orch.Run(ctx, "@mychannel")
//
// The alphabet is a heuristic cover, not a proof of coverage: the final
// set is as complete as filtered queries allow, and Result.Coverage is
// advisory only. Per-filter failures are recorded in the result and do
// not abort the run; only lost authorization or an unresolvable channel
// does.
package enumerate
