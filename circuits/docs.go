package circuits

// The circuits package manages the zkSNARK artifacts used by the protocol.
// Five circuits gate the stateful operations:
//   1. Withdraw proves knowledge of a commitment under the membership tree
//      and the authorized set, binding the spend to a request context.
//   2. Ragequit proves ownership of a commitment for a full-value exit
//      outside the authorized set.
//   3. Mint proves that an encrypted amount is well formed under the
//      recipient key and mirrored under the auditor key.
//   4. Burn proves a decrease against the exact stored balance ciphertext.
//   5. Transfer proves that the sender and receiver deltas encrypt the same
//      amount under their respective keys.
// Each circuit ships as a definition, a proving key and a verification key.
// The artifacts are fetched from a remote CDN, verified by hash and cached
// locally.
