package voicesession

import "github.com/eleven-am/sightline/internal/tags"

type event interface {
	isEvent()
}

type pointerDown struct{}
type pointerUp struct{}
type toggleRequest struct{}
type scanRequest struct{}
type cameraReady struct{}
type refreshTags struct{}

type deleteTagRequest struct {
	id string
}

type holdElapsed struct {
	gen uint64
}

type timerFired struct {
	gen uint64
}

type speechFinished struct {
	id uint64
}

type recognitionUpdate struct {
	RecognitionEvent
}

type narrationReady struct {
	gen  uint64
	text string
}

type scanReady struct {
	gen  uint64
	text string
}

type answerReady struct {
	gen    uint64
	answer string
	err    error
}

type tagAdded struct {
	gen uint64
	tag *tags.Tag
	err error
}

type tagsLoaded struct {
	list []tags.Tag
	err  error
}

type tagDeleted struct {
	id  string
	err error
}

func (pointerDown) isEvent() {}
func (pointerUp) isEvent() {}
func (toggleRequest) isEvent() {}
func (scanRequest) isEvent() {}
func (cameraReady) isEvent() {}
func (refreshTags) isEvent() {}
func (deleteTagRequest) isEvent() {}
func (holdElapsed) isEvent() {}
func (timerFired) isEvent() {}
func (speechFinished) isEvent() {}
func (recognitionUpdate) isEvent() {}
func (narrationReady) isEvent() {}
func (scanReady) isEvent() {}
func (answerReady) isEvent() {}
func (tagAdded) isEvent() {}
func (tagsLoaded) isEvent() {}
func (tagDeleted) isEvent() {}
