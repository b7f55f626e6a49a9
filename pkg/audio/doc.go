// Package audio is the umbrella for the audio sub-packages:
//
//   - pcm: sample formats and mono float signals
//   - codec: WAV and MP3 decoding into signals (codec/wav, codec/mp3)
//   - resampler: sample rate conversion
//   - features: the 32-value acoustic feature vector
//   - synth: test signal generators
package audio
