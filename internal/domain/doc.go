// Package domain models the records flowing through the precipitation
// disaggregation pipeline.
//
// # Background
//
// Regional climate model output carries precipitation as 3-hour block
// totals, while the downstream rainfall-runoff model needs hourly values.
// The service redistributes each 3-hour total across its three constituent
// hours using fractional weights observed in a historical gauge record:
// for every historical 3-hour block with rain, the fraction each hour
// contributed to the block total is one weight observation.
//
// # Calendar keys
//
// A weight observation is filed under the recurring calendar position of
// its block, ignoring the year: (month, day, block-start hour). Blocks
// start at hours 0, 3, 6, ..., 21, so a key like (7, 15, 6) covers the
// 06:00-09:00 window of every July 15th in the record. When a future
// block's exact key has no observations, lookup degrades to the monthly
// pool (month, hour) and finally to a uniform 1/3 split; the MatchLevel
// on every output row records which level resolved it.
//
// # Mass conservation
//
// Each weight triple sums to 1.0, so the three hourly values always sum
// back to the original block total up to floating-point accumulation.
// The pipeline verifies this per block and reports the maximum deviation.
//
// # Reproducibility
//
// The stochastic year choice for a block is driven by a generator seeded
// from a SHA-256 hash of the run seed and the block's own identity (cell
// id + block start). Two runs with the same seed produce byte-identical
// output regardless of batch size or worker count, and reprocessing a
// single cell reproduces exactly the rows of a full-basin run.
package domain
