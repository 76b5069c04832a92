package feed

import (
	"fmt"

	"gocv.io/x/gocv"
)

// frameSource pulls frames from a live stream and hands them back JPEG-encoded
type frameSource interface {
	ReadJPEG(quality int) ([]byte, error)
	Close() error
}

// gocvSource wraps a VideoCapture opened on an HLS playlist
type gocvSource struct {
	cap *gocv.VideoCapture
	mat gocv.Mat
}

func openGocvCapture(url string) (frameSource, error) {
	cap, err := gocv.OpenVideoCapture(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream %s: %w", url, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("stream %s did not open", url)
	}
	return &gocvSource{cap: cap, mat: gocv.NewMat()}, nil
}

func (s *gocvSource) ReadJPEG(quality int) ([]byte, error) {
	if !s.cap.Read(&s.mat) || s.mat.Empty() {
		return nil, fmt.Errorf("stream returned no frame")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, s.mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode stream frame: %w", err)
	}
	defer buf.Close()
	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

func (s *gocvSource) Close() error {
	s.mat.Close()
	return s.cap.Close()
}
