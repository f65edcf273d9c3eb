package layout

import "strings"

// CompressionMarker 是写入正文的窄空格字符。压缩状态直接保存在文本里，
// 这样数据库中的语句重新渲染时能得到相同的折行。
type CompressionMarker rune

// ThinSpace 为默认标记（U+2009 THIN SPACE）。
const ThinSpace CompressionMarker = '\u2009'

// Rune 返回标记字符。
func (m CompressionMarker) Rune() rune { return rune(m) }

func (m CompressionMarker) String() string { return string(rune(m)) }

// In 判断文本中是否包含该标记。
func (m CompressionMarker) In(text string) bool { return strings.ContainsRune(text, rune(m)) }

// Count 返回文本中标记的数量。
func (m CompressionMarker) Count(text string) int { return strings.Count(text, string(rune(m))) }
