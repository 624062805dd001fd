package ml

import (
	"errors"
)

func LoadModel(modelType, path string) (Predictor, error) {
	switch modelType {
	case "random_forest":
		model := &RandomForest{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	case "regression_tree":
		model := &RegressionTree{}
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, errors.New("unsupported model type")
	}
}
