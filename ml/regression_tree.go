package ml

import (
	"encoding/json"
	"errors"
	"math"
	"os"
)

type RegressionTree struct {
	nodes    []treeNode
	maxDepth int
	minLeaf  int
}

type treeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

func NewRegressionTree(maxDepth, minLeaf int) *RegressionTree {
	if maxDepth <= 0 {
		maxDepth = 12
	}
	if minLeaf <= 0 {
		minLeaf = 2
	}
	return &RegressionTree{maxDepth: maxDepth, minLeaf: minLeaf}
}

func (rt *RegressionTree) Train(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	if rt.maxDepth <= 0 {
		rt.maxDepth = 12
	}
	if rt.minLeaf <= 0 {
		rt.minLeaf = 2
	}

	rt.nodes = nil
	rt.nodes = rt.buildNode(features, targets, 0)
	return nil
}

func (rt *RegressionTree) Predict(features []float64) (float64, error) {
	if len(rt.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := rt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(rt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func (rt *RegressionTree) Save(path string) error {
	if len(rt.nodes) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(rt.nodes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (rt *RegressionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var nodes []treeNode
	if err := json.Unmarshal(payload, &nodes); err != nil {
		return err
	}
	rt.nodes = nodes
	return nil
}

func (rt *RegressionTree) buildNode(features [][]float64, targets []float64, depth int) []treeNode {
	value := mean(targets)
	if depth >= rt.maxDepth || len(targets) <= rt.minLeaf || variance(targets) == 0 {
		return []treeNode{leafNode(value)}
	}

	bestFeature, threshold, ok := findBestSplit(features, targets)
	if !ok {
		return []treeNode{leafNode(value)}
	}

	leftFeatures, leftTargets, rightFeatures, rightTargets := splitData(features, targets, bestFeature, threshold)
	if len(leftTargets) == 0 || len(rightTargets) == 0 {
		return []treeNode{leafNode(value)}
	}

	leftNodes := rt.buildNode(leftFeatures, leftTargets, depth+1)
	rightNodes := rt.buildNode(rightFeatures, rightTargets, depth+1)

	root := treeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  1,
		RightChild: 1 + len(leftNodes),
		Value:      value,
		IsLeaf:     false,
	}

	nodes := make([]treeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

func leafNode(value float64) treeNode {
	return treeNode{
		FeatureIdx: -1,
		Threshold:  0,
		LeftChild:  -1,
		RightChild: -1,
		Value:      value,
		IsLeaf:     true,
	}
}

func findBestSplit(features [][]float64, targets []float64) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		for _, threshold := range candidateThresholds(values) {
			leftTargets, rightTargets := splitTargets(features, targets, featureIdx, threshold)
			if len(leftTargets) == 0 || len(rightTargets) == 0 {
				continue
			}
			impurity := weightedVariance(leftTargets, rightTargets)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

// candidateThresholds returns the quartiles of the feature values. A handful
// of order-statistic candidates keeps training near-linear per node while
// still finding useful regression splits.
func candidateThresholds(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sortFloats(sorted)

	candidates := make([]float64, 0, 3)
	for _, q := range []float64{0.25, 0.5, 0.75} {
		idx := int(q * float64(len(sorted)-1))
		value := sorted[idx]
		duplicate := false
		for _, existing := range candidates {
			if existing == value {
				duplicate = true
				break
			}
		}
		if !duplicate {
			candidates = append(candidates, value)
		}
	}
	return candidates
}

func splitData(features [][]float64, targets []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	leftFeatures := make([][]float64, 0)
	leftTargets := make([]float64, 0)
	rightFeatures := make([][]float64, 0)
	rightTargets := make([]float64, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftFeatures = append(leftFeatures, feature)
			leftTargets = append(leftTargets, targets[i])
		} else {
			rightFeatures = append(rightFeatures, feature)
			rightTargets = append(rightTargets, targets[i])
		}
	}
	return leftFeatures, leftTargets, rightFeatures, rightTargets
}

func splitTargets(features [][]float64, targets []float64, featureIdx int, threshold float64) ([]float64, []float64) {
	leftTargets := make([]float64, 0)
	rightTargets := make([]float64, 0)
	for i, feature := range features {
		if feature[featureIdx] <= threshold {
			leftTargets = append(leftTargets, targets[i])
		} else {
			rightTargets = append(rightTargets, targets[i])
		}
	}
	return leftTargets, rightTargets
}

func weightedVariance(leftTargets, rightTargets []float64) float64 {
	leftWeight := float64(len(leftTargets))
	rightWeight := float64(len(rightTargets))
	total := leftWeight + rightWeight
	return (leftWeight/total)*variance(leftTargets) + (rightWeight/total)*variance(rightTargets)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := mean(values)
	sum := 0.0
	for _, value := range values {
		diff := value - avg
		sum += diff * diff
	}
	return sum / float64(len(values))
}

func sortFloats(values []float64) {
	for i := 1; i < len(values); i++ {
		j := i
		for j > 0 && values[j-1] > values[j] {
			values[j-1], values[j] = values[j], values[j-1]
			j--
		}
	}
}
