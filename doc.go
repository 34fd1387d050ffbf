// Package lfsrcrack recovers the seeds of a two-register LFSR keystream
// generator from a short known-plaintext prefix.
//
// The target construction clocks two independent linear-feedback shift
// registers byte by byte and combines their outputs as (b1 + b2) mod 255.
// Given the first few keystream bytes (ciphertext XOR known plaintext),
// a meet-in-the-middle search tabulates the full output space of the
// second register and scans the first, turning the infeasible pairwise
// seed search into a table lookup.
//
// Sub-packages:
//   - lfsr: register specification and bit/byte generation
//   - keystream: the two-register combiner and full keystream generation
//   - mitm: the recovery table and the meet-in-the-middle seed search
package lfsrcrack

import (
	"github.com/blang/semver/v4"
)

var Version = semver.MustParse("0.2.0")
