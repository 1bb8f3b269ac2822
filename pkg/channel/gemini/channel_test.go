package gemini

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nareswara/intervox/pkg/channel"
)

func TestSetupMessageShape(t *testing.T) {
	msg := newSetupMessage(channel.Setup{
		Model:               "gemini-2.0-flash-live-001",
		Voice:               "Aoede",
		SystemInstruction:   "You are an interviewer.",
		InputTranscription:  true,
		OutputTranscription: true,
	})

	if msg.Setup.Model != "models/gemini-2.0-flash-live-001" {
		t.Fatalf("model = %q, want models/ prefix applied", msg.Setup.Model)
	}
	if got := msg.Setup.GenerationConfig.ResponseModalities; len(got) != 1 || got[0] != "AUDIO" {
		t.Fatalf("modalities = %v", got)
	}
	if msg.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Aoede" {
		t.Fatal("voice not threaded through speech config")
	}
	if msg.Setup.SystemInstruction == nil || msg.Setup.SystemInstruction.Parts[0].Text != "You are an interviewer." {
		t.Fatal("system instruction missing")
	}
	if msg.Setup.InputAudioTranscription == nil || msg.Setup.OutputAudioTranscription == nil {
		t.Fatal("transcription requests missing")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"setup"`, `"generationConfig"`, `"inputAudioTranscription"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("wire json missing %s: %s", key, data)
		}
	}
}

func TestSetupMessageDefaults(t *testing.T) {
	msg := newSetupMessage(channel.Setup{})
	if msg.Setup.Model != "models/gemini-2.0-flash-live-001" {
		t.Fatalf("default model = %q", msg.Setup.Model)
	}
	if msg.Setup.GenerationConfig.SpeechConfig != nil {
		t.Fatal("speech config set without a voice")
	}
	if msg.Setup.SystemInstruction != nil {
		t.Fatal("system instruction set without a prompt")
	}
}

func TestDispatchContentOrder(t *testing.T) {
	c := New(Config{APIKey: "test"})

	audio := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
	c.dispatchContent(&serverContent{
		ModelTurn: &content{Parts: []part{
			{InlineData: &inlineData{MIMEType: "audio/pcm;rate=24000", Data: audio}},
			{Text: "ignored text part"},
		}},
		InputTranscription:  &transcription{Text: "hello"},
		OutputTranscription: &transcription{Text: "hi"},
		Interrupted:         true,
		TurnComplete:        true,
	})

	wantKinds := []channel.EventKind{
		channel.EventAudio,
		channel.EventInputTranscription,
		channel.EventOutputTranscription,
		channel.EventInterrupted,
		channel.EventTurnComplete,
	}
	for i, want := range wantKinds {
		evt := <-c.Events()
		if evt.Kind != want {
			t.Fatalf("event %d = %s, want %s", i, evt.Kind, want)
		}
		if want == channel.EventAudio && len(evt.PCM) != 4 {
			t.Fatalf("audio payload len = %d, want 4", len(evt.PCM))
		}
	}
}

func TestDispatchContentSkipsBadAudio(t *testing.T) {
	c := New(Config{APIKey: "test"})
	c.dispatchContent(&serverContent{
		ModelTurn:    &content{Parts: []part{{InlineData: &inlineData{Data: "not base64!!"}}}},
		TurnComplete: true,
	})

	evt := <-c.Events()
	if evt.Kind != channel.EventTurnComplete {
		t.Fatalf("event = %s, want turn complete after bad audio dropped", evt.Kind)
	}
}

func TestServerMessageDecode(t *testing.T) {
	payload := `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"AAAA"}}]},"outputTranscription":{"text":"Sure."},"turnComplete":true}}`
	var msg serverMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.ServerContent == nil || !msg.ServerContent.TurnComplete {
		t.Fatal("turnComplete not decoded")
	}
	if msg.ServerContent.OutputTranscription.Text != "Sure." {
		t.Fatalf("transcription = %q", msg.ServerContent.OutputTranscription.Text)
	}
	if len(msg.ServerContent.ModelTurn.Parts) != 1 {
		t.Fatal("model turn parts not decoded")
	}
}

func TestSendAudioBeforeOpenFails(t *testing.T) {
	c := New(Config{APIKey: "test"})
	if err := c.SendAudio(channel.WireFrame{Data: "AA==", MIMEType: "audio/pcm;rate=16000"}); err == nil {
		t.Fatal("expected error sending on unopened channel")
	}
}
