package recognition

import (
	"github.com/Kagami/go-face"
)

type MockFaceEngine struct {
	RecognizeFunc func(data []byte) ([]face.Face, error)
	CloseFunc     func()
}

func (m *MockFaceEngine) Recognize(data []byte) ([]face.Face, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(data)
	}
	return nil, nil
}

func (m *MockFaceEngine) Close() {
	if m.CloseFunc != nil {
		m.CloseFunc()
	}
}

// loadedWith returns a recognizer backed by engine.
func loadedWith(engine FaceEngine) *Recognizer {
	r := NewRecognizer()
	r.factory = func(path string) (FaceEngine, error) {
		return engine, nil
	}
	_ = r.LoadModels("dummy")
	return r
}

// facesOf returns an engine that always reports faces.
func facesOf(faces ...face.Face) *MockFaceEngine {
	return &MockFaceEngine{
		RecognizeFunc: func(data []byte) ([]face.Face, error) {
			return faces, nil
		},
	}
}
