package lineutil

import "github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

// textStyle holds the FlexText properties cards vary.
type textStyle struct {
	size  string
	color string
	bold  bool
}

var (
	titleStyle    = textStyle{size: "lg", color: ColorWhite, bold: true}
	subtitleStyle = textStyle{size: "sm", color: ColorWhite}
	lineStyle     = textStyle{size: "sm", color: ColorGray900}
)

// flexText builds a wrapping text component.
func flexText(text string, style textStyle) *messaging_api.FlexText {
	t := &messaging_api.FlexText{
		Text:  text,
		Size:  style.size,
		Color: style.color,
		Wrap:  true,
	}
	if style.bold {
		t.Weight = messaging_api.FlexTextWEIGHT("bold")
	}
	return t
}

// vbox stacks components vertically with padding.
func vbox(padding string, contents ...messaging_api.FlexComponentInterface) *messaging_api.FlexBox {
	return &messaging_api.FlexBox{
		Layout:     messaging_api.FlexBoxLAYOUT("vertical"),
		PaddingAll: padding,
		Contents:   contents,
	}
}
