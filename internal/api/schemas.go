package api

import (
	"errors"

	"github.com/ivlev/scene2video/internal/renderer"
	"github.com/ivlev/scene2video/internal/scene"
	"github.com/ivlev/scene2video/internal/store"
	"github.com/ivlev/scene2video/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
	Exports string `json:"exports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type IssueResponse struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type ValidateResponse struct {
	Valid  bool            `json:"valid"`
	Issues []IssueResponse `json:"issues"`
}

type DurationResponse struct {
	TotalFrames int     `json:"totalFrames"`
	Seconds     float64 `json:"seconds"`
	FPS         int     `json:"fps"`
}

type LayerResponse struct {
	Visible    bool    `json:"visible"`
	Opacity    float64 `json:"opacity"`
	TranslateX float64 `json:"translateX"`
	TranslateY float64 `json:"translateY"`
	RotateY    float64 `json:"rotateY"`
	ClipPath   string  `json:"clipPath,omitempty"`
	Mask       string  `json:"mask,omitempty"`
}

type HandoffResponse struct {
	From       int                 `json:"from"`
	To         int                 `json:"to"`
	Transition scene.Transition    `json:"transition"`
	Progress   float64             `json:"progress"`
	Outgoing   renderer.SceneState `json:"outgoing"`
	Exiting    LayerResponse       `json:"exiting"`
	Entering   LayerResponse       `json:"entering"`
}

type FrameResponse struct {
	Frame       int                 `json:"frame"`
	TotalFrames int                 `json:"totalFrames"`
	SceneIndex  int                 `json:"sceneIndex"`
	Scene       renderer.SceneState `json:"scene"`
	Handoff     *HandoffResponse    `json:"handoff,omitempty"`
}

type ExtractRequest struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type ExtractResponse struct {
	Scenes      []scene.Scene `json:"scenes"`
	TotalFrames int           `json:"totalFrames"`
}

func ScenesToResponse(scenes []scene.Scene) ExtractResponse {
	if scenes == nil {
		scenes = []scene.Scene{}
	}
	return ExtractResponse{Scenes: scenes, TotalFrames: timeline.TotalFrames(scenes)}
}

type CompositionsResponse struct {
	Compositions []*store.Record `json:"compositions"`
}

type ExportRequest struct {
	Output string `json:"output"`
}

type ExportsResponse struct {
	Exports []*store.Export `json:"exports"`
}

func ValidationToResponse(err error) ValidateResponse {
	resp := ValidateResponse{Valid: err == nil, Issues: []IssueResponse{}}
	if err == nil {
		return resp
	}
	var verr *scene.ValidationError
	if !errors.As(err, &verr) {
		resp.Issues = append(resp.Issues, IssueResponse{Message: err.Error()})
		return resp
	}
	for _, issue := range verr.Issues {
		resp.Issues = append(resp.Issues, IssueResponse{Path: issue.Path, Message: issue.Err.Error()})
	}
	return resp
}

func LayerToResponse(l timeline.Layer) LayerResponse {
	resp := LayerResponse{
		Visible:    l.Visible,
		Opacity:    l.Opacity,
		TranslateX: l.TranslateX,
		TranslateY: l.TranslateY,
		RotateY:    l.RotateY,
	}
	switch l.Clip.Kind {
	case timeline.ClipRect:
		resp.ClipPath = renderer.InsetCSS(l.Clip.X0, l.Clip.Y0, l.Clip.X1, l.Clip.Y1)
	case timeline.ClipSweep:
		resp.Mask = renderer.SweepMaskCSS(l.Clip.Sweep)
	}
	return resp
}

// FrameToResponse resolves the visual state of every scene showing at frame.
func FrameToResponse(comp *scene.Composition, frame int) (FrameResponse, bool) {
	pos, ok := timeline.Locate(comp.Scenes, frame)
	if !ok {
		return FrameResponse{}, false
	}
	total := timeline.TotalFrames(comp.Scenes)
	fps := comp.Meta.FPS

	resp := FrameResponse{
		Frame:       min(max(frame, 0), total-1),
		TotalFrames: total,
		SceneIndex:  pos.Scene,
		Scene:       renderer.RenderScene(comp.Scenes[pos.Scene], pos.LocalFrame, fps),
	}
	if h := pos.Handoff; h != nil {
		exiting, entering := timeline.Presentation(h.Transition, h.Progress)
		resp.Handoff = &HandoffResponse{
			From:       h.From,
			To:         h.To,
			Transition: h.Transition,
			Progress:   h.Progress,
			Outgoing:   renderer.RenderScene(comp.Scenes[h.From], h.FromFrame, fps),
			Exiting:    LayerToResponse(exiting),
			Entering:   LayerToResponse(entering),
		}
	}
	return resp, true
}
