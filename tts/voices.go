package tts

import "github.com/d1nch8g/voiceengine/catalog"

// YandexVoices is the SpeechKit v3 voice list. SpeechKit has no discovery
// call, so the list is maintained by hand.
var YandexVoices = []catalog.Voice{
	{Language: "de-DE", Name: "lea"},
	{Language: "en-US", Name: "john"},
	{Language: "he-IL", Name: "naomi"},
	{Language: "kk-KZ", Name: "amira"},
	{Language: "kk-KZ", Name: "madi"},
	{Language: "ru-RU", Name: "alena"},
	{Language: "ru-RU", Name: "alexander"},
	{Language: "ru-RU", Name: "anton"},
	{Language: "ru-RU", Name: "dasha"},
	{Language: "ru-RU", Name: "ermil"},
	{Language: "ru-RU", Name: "filipp"},
	{Language: "ru-RU", Name: "jane"},
	{Language: "ru-RU", Name: "julia"},
	{Language: "ru-RU", Name: "kirill"},
	{Language: "ru-RU", Name: "lera"},
	{Language: "ru-RU", Name: "madirus"},
	{Language: "ru-RU", Name: "marina"},
	{Language: "ru-RU", Name: "masha"},
	{Language: "ru-RU", Name: "omazh"},
	{Language: "ru-RU", Name: "zahar"},
	{Language: "uz-UZ", Name: "nigora"},
}
