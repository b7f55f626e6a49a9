// Package screening turns speech recordings into Alzheimer's risk
// assessments.
//
// A [Screener] decodes a recording, extracts the 32-value acoustic
// feature vector, normalizes it with a frozen [Normalizer], classifies it
// with a frozen binary [Classifier] and labels the AD probability against
// [ADThreshold].
//
// # Artifacts
//
// The normalizer and classifier are loaded once by [LoadArtifacts] from
// JSON, YAML or MessagePack documents exported from the training
// pipeline. Every document carries a "kind" that selects its decoder:
//
//	standard_scaler      mean, scale                  (x - mean) / scale
//	min_max_scaler       scale, min                   x*scale + min
//	random_forest        n_features, estimators       mean of leaf distributions
//	logistic_regression  coef, intercept              sigmoid(coef·z + intercept)
//
// Random forest estimators use the flattened tree arrays children_left,
// children_right, feature, threshold and value (one row of two class
// weights per node). Further kinds can be added with [RegisterNormalizer]
// and [RegisterClassifier].
package screening
