package domain

import "strings"

const DefaultLanguage = "en"

type Voice struct {
	RecognitionLocale string `yaml:"recognition_locale"`
	SynthesisVoice    string `yaml:"synthesis_voice"`
}

// VoiceProfile maps a language code to its voice settings. Read-only once built.
type VoiceProfile map[string]Voice

func DefaultVoiceProfile() VoiceProfile {
	return VoiceProfile{
		"en": {RecognitionLocale: "en-US", SynthesisVoice: "en-US-AriaNeural"},
		"es": {RecognitionLocale: "es-ES", SynthesisVoice: "es-ES-ElviraNeural"},
		"fr": {RecognitionLocale: "fr-FR", SynthesisVoice: "fr-FR-DeniseNeural"},
		"de": {RecognitionLocale: "de-DE", SynthesisVoice: "de-DE-KatjaNeural"},
		"it": {RecognitionLocale: "it-IT", SynthesisVoice: "it-IT-ElsaNeural"},
		"pt": {RecognitionLocale: "pt-BR", SynthesisVoice: "pt-BR-FranciscaNeural"},
		"ja": {RecognitionLocale: "ja-JP", SynthesisVoice: "ja-JP-NanamiNeural"},
		"zh": {RecognitionLocale: "zh-CN", SynthesisVoice: "zh-CN-XiaoxiaoNeural"},
	}
}

// Resolve returns the voice for code, falling back to English. The second
// return value reports whether code itself was mapped.
func (p VoiceProfile) Resolve(code string) (Voice, bool) {
	key := strings.ToLower(strings.TrimSpace(code))
	if v, ok := p[key]; ok {
		return v, true
	}
	if i := strings.IndexAny(key, "-_"); i > 0 {
		if v, ok := p[key[:i]]; ok {
			return v, true
		}
	}
	if v, ok := p[DefaultLanguage]; ok {
		return v, false
	}
	return DefaultVoiceProfile()[DefaultLanguage], false
}
