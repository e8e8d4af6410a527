package analysis

// Prompt asks for the organisation metadata as a bare JSON object, in Portuguese.
const Prompt = `Você é um organizador de arquivos inteligente. Dado o conteúdo abaixo, retorne um JSON com:
- 'nome_sugerido': nome adequado do arquivo
- 'resumo': de 3 a 10 frases conforme necessário
- 'categoria': ex: Clientes, Projetos, Financeiro...
- 'caminho_destino': pasta destino sugerida
- 'tags': lista de palavras-chave
- 'tipo_documento': ex: 1ª edição, cópia, final
- 'duplicado_de': nome de possível original, se for o caso
Use português e responda apenas o JSON.`

// InlinePrompt accompanies a document sent as binary inline data.
const InlinePrompt = Prompt + `
O documento segue anexado como arquivo.`

// contentSeparator sits between the prompt and the extracted text.
const contentSeparator = "\n\n---\n\n"

func textPrompt(text string) string {
	return Prompt + contentSeparator + text
}
