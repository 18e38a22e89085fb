// Package kmeans implements k-means clustering over float64 rows.
//
// Used by the seed package to derive initial clone centroids from VAF
// values, and by the decision package to cluster gap-statistic reference
// sets from a fixed starting point.
package kmeans
