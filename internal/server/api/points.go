package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/palmpay/internal/gesture"
)

// wirePoint accepts either {"x":..,"y":..,"timestamp":..} or a [x, y] pair.
type wirePoint gesture.Point

func (p *wirePoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) < 2 {
			return fmt.Errorf("point needs two coordinates, got %d", len(pair))
		}
		*p = wirePoint{X: pair[0], Y: pair[1]}
		return nil
	}

	var obj gesture.Point
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.New("point must be {x, y} or [x, y]")
	}
	*p = wirePoint(obj)
	return nil
}

// gestureInput is the shared request body of the gesture endpoints. Points
// may be sent at the top level or nested under gesture_data.
type gestureInput struct {
	Points      []wirePoint          `json:"points"`
	GestureData *gestureInput        `json:"gesture_data,omitempty"`
	Landmarks   map[string]wirePoint `json:"landmarks,omitempty"`
}

func (in *gestureInput) trajectory() gesture.Trajectory {
	points := in.Points
	if len(points) == 0 && in.GestureData != nil {
		points = in.GestureData.Points
	}
	t := make(gesture.Trajectory, len(points))
	for i, p := range points {
		t[i] = gesture.Point(p)
	}
	return t
}

func (in *gestureInput) pose() gesture.StaticPose {
	landmarks := in.Landmarks
	if len(landmarks) == 0 && in.GestureData != nil {
		landmarks = in.GestureData.Landmarks
	}
	if len(landmarks) == 0 {
		return nil
	}
	pose := make(gesture.StaticPose, len(landmarks))
	for name, p := range landmarks {
		pose[gesture.Landmark(name)] = gesture.Point(p)
	}
	return pose
}

func (in *gestureInput) empty() bool {
	return len(in.trajectory()) == 0 && len(in.pose()) == 0
}
