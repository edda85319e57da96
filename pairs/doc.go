// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package pairs holds the image-id range and variant-pair arithmetic used by the
survey controller.

# Ranges

Base image ids live in a half-open range [start, end). A range with
end <= start is treated as unset and falls back to DefaultRange ([0, 100)):

	id := pairs.NormalizeImageID(-1, 0, 100) // 99
	id = pairs.NormalizeImageID(100, 0, 100) // 0

# Variant Pairs

A pair is an unordered 2-combination of variant indices {0 … n-1}. Pairs are
compared through their canonical key:

	pairs.Key(3, 1) == pairs.Key(1, 3) // "1-3"

RandomVariantPair draws two distinct indices and fails with
ErrInvalidConfiguration when fewer than two variants exist.

# Randomness

Package-level functions use the global math/rand/v2 source. Use NewGenerator
with a seeded source when results must be reproducible:

	g := pairs.NewGenerator(rand.NewPCG(1, 2))
	p, err := g.VariantPair(5)
*/
package pairs
